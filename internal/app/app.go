// Package app arma los servicios del diario a partir de la configuración.
// Lo comparten el servidor HTTP y el cliente de consola.
package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dream-journal/internal/config"
	"dream-journal/internal/db"
	"dream-journal/internal/email"
	"dream-journal/internal/repository"
	"dream-journal/internal/service"
	"dream-journal/internal/worker"
)

const (
	resetAttemptWindow = 10 * time.Minute
	resetAttemptMax    = 3
)

type App struct {
	Logger    *zap.Logger
	Config    *config.Config
	JWT       *service.JWTService
	Auth      *service.AuthService
	Dreams    *service.DreamService
	Stats     *service.StatsService
	Settings  *service.SettingsService
	Reminders service.Reminder

	local         *sql.DB
	pool          *pgxpool.Pool
	redis         *redis.Client
	stopReminders func()
}

// New abre el almacén local y, si están configurados, la nube y Redis.
// Una nube inalcanzable deja la app en modo solo local.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Logger: logger, Config: cfg}

	local, err := db.OpenLocal(ctx, cfg.LocalDBPath)
	if err != nil {
		return nil, err
	}
	a.local = local

	var (
		users repository.UserRepository
		cloud repository.CloudDreamRepository
	)
	if cfg.CloudEnabled() {
		if pool, err := connectCloud(ctx, cfg); err != nil {
			logger.Warn("cloud store unavailable, running local only", zap.Error(err))
		} else {
			a.pool = pool
			users = repository.NewPgUserRepository(pool)
			cloud = repository.NewPgCloudDreamRepository(pool)
		}
	}

	var (
		limiter    service.AttemptLimiter
		tokenStore service.RefreshTokenStore
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
			_ = client.Close()
		} else {
			a.redis = client
			limiter = service.NewRedisAttemptLimiter(client, "dreams:reset:rl:", resetAttemptWindow, resetAttemptMax)
			tokenStore = service.NewRedisRefreshTokenStore(client)
		}
		cancel()
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	a.JWT = service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	sender := newEmailSender(cfg, logger)
	localDreams := repository.NewSQLiteDreamRepository(local)

	a.Dreams = service.NewDreamService(logger, localDreams, cloud, time.Duration(cfg.RemoteTimeoutSeconds)*time.Second)
	a.Stats = service.NewStatsService(localDreams)
	a.Auth = service.NewAuthService(logger, users, sender, limiter)
	a.Auth.SetListener(a.Dreams)
	a.Reminders = a.newReminder(cfg, newNotifier(cfg, sender, logger))
	a.Settings = service.NewSettingsService(logger, repository.NewSQLiteSettingsRepository(local), a.Reminders)

	if _, err := a.Settings.Restore(ctx); err != nil {
		logger.Warn("restore reminder settings failed", zap.Error(err))
	}
	return a, nil
}

// Close detiene el recordatorio y libera conexiones.
func (a *App) Close() {
	if a.Reminders != nil {
		a.Reminders.Cancel()
	}
	if a.stopReminders != nil {
		a.stopReminders()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.local != nil {
		_ = a.local.Close()
	}
}

// newReminder usa asynq sobre Redis cuando está disponible y, si no, un
// timer en proceso.
func (a *App) newReminder(cfg *config.Config, notifier service.Notifier) service.Reminder {
	if a.redis != nil {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		reminder, stop, err := worker.StartReminder(redisOpt, a.Logger, notifier)
		if err == nil {
			a.stopReminders = stop
			return reminder
		}
		a.Logger.Warn("asynq reminder unavailable, using in-process timer", zap.Error(err))
	}
	return service.NewReminderScheduler(a.Logger, notifier)
}

func connectCloud(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	if err := db.EnsureCloudSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func newEmailSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.SMTPHost == "" {
		return email.NewDisabledSender("email sender not configured")
	}
	sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
	if err != nil {
		logger.Warn("smtp sender init failed", zap.Error(err))
		return email.NewDisabledSender(err.Error())
	}
	return sender
}

func newNotifier(cfg *config.Config, sender email.Sender, logger *zap.Logger) service.Notifier {
	if cfg.SMTPHost != "" && cfg.ReminderEmail != "" {
		if n, err := email.NewMailNotifier(sender, cfg.ReminderEmail); err == nil {
			return n
		}
	}
	return email.NewLogNotifier(logger)
}
