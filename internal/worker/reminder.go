// Package worker ejecuta el recordatorio diario como tarea periódica de asynq
// cuando hay Redis disponible.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"dream-journal/internal/service"
)

const (
	TaskDailyReminder = "reminder:daily"
	reminderQueue     = "reminders"
)

// cronRegistry es la parte de asynq.Scheduler que usa Reminder.
type cronRegistry interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
	Unregister(entryID string) error
}

// Reminder mantiene a lo sumo una entrada cron registrada. Schedule
// reemplaza la anterior; Cancel la elimina.
type Reminder struct {
	logger   *zap.Logger
	cron     cronRegistry
	location *time.Location
	now      func() time.Time

	mu           sync.Mutex
	entryID      string
	hour, minute int
}

func NewReminder(logger *zap.Logger, cron cronRegistry, location *time.Location) *Reminder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}
	return &Reminder{
		logger:   logger,
		cron:     cron,
		location: location,
		now:      time.Now,
	}
}

// CronSpec devuelve la expresión cron diaria para hh:mm.
func CronSpec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

func (r *Reminder) Schedule(hour, minute int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked()

	task := asynq.NewTask(TaskDailyReminder, nil,
		asynq.Queue(reminderQueue),
		asynq.MaxRetry(1),
		asynq.Unique(time.Hour),
	)
	entryID, err := r.cron.Register(CronSpec(hour, minute), task)
	if err != nil {
		r.logger.Error("register reminder failed", zap.Error(err))
		return
	}
	r.entryID = entryID
	r.hour, r.minute = hour, minute
	r.logger.Info("reminder scheduled",
		zap.String("entry_id", entryID),
		zap.String("cron", CronSpec(hour, minute)),
	)
}

func (r *Reminder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entryID != "" {
		r.logger.Info("reminder cancelled", zap.String("entry_id", r.entryID))
	}
	r.unregisterLocked()
}

// Next devuelve la próxima ejecución de la entrada registrada; cero si no hay.
func (r *Reminder) Next() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entryID == "" {
		return time.Time{}
	}
	return service.NextRun(r.now().In(r.location), r.hour, r.minute)
}

func (r *Reminder) unregisterLocked() {
	if r.entryID == "" {
		return
	}
	if err := r.cron.Unregister(r.entryID); err != nil {
		r.logger.Warn("unregister reminder failed", zap.String("entry_id", r.entryID), zap.Error(err))
	}
	r.entryID = ""
}

// HandleDailyReminder entrega el recordatorio. Un error deja que asynq reintente.
func HandleDailyReminder(logger *zap.Logger, notifier service.Notifier) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		if notifier == nil {
			return nil
		}
		if err := notifier.Notify(ctx, service.ReminderTitle, service.ReminderBody); err != nil {
			logger.Warn("reminder delivery failed", zap.Error(err))
			return err
		}
		return nil
	}
}

// StartReminder arranca el planificador y el servidor asynq que procesa la
// cola de recordatorios. stop detiene ambos.
func StartReminder(redisOpt asynq.RedisConnOpt, logger *zap.Logger, notifier service.Notifier) (*Reminder, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	asynqLogger := logger.Named("asynq").Sugar()

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.Local,
		Logger:   asynqLogger,
		LogLevel: asynq.WarnLevel,
	})

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     1,
		Queues:          map[string]int{reminderQueue: 1},
		ShutdownTimeout: 10 * time.Second,
		Logger:          asynqLogger,
		LogLevel:        asynq.WarnLevel,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDailyReminder, HandleDailyReminder(logger, notifier))

	if err := scheduler.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start reminder scheduler: %w", err)
	}
	if err := srv.Start(mux); err != nil {
		scheduler.Shutdown()
		return nil, nil, fmt.Errorf("failed to start reminder worker: %w", err)
	}

	stop := func() {
		scheduler.Shutdown()
		srv.Shutdown()
	}
	return NewReminder(logger, scheduler, time.Local), stop, nil
}
