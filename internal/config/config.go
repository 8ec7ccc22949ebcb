package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort             string `env:"HTTP_PORT" envDefault:"8080"`
	LocalDBPath          string `env:"LOCAL_DB_PATH" envDefault:"data/dreams.db"`
	DatabaseURL          string `env:"DATABASE_URL"`
	RemoteTimeoutSeconds int    `env:"REMOTE_TIMEOUT_SECONDS" envDefault:"5"`
	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`
	SMTPHost             string `env:"SMTP_HOST"`
	SMTPPort             int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser             string `env:"SMTP_USER"`
	SMTPPass             string `env:"SMTP_PASS"`
	SMTPFrom             string `env:"SMTP_FROM"`
	SMTPFromName         string `env:"SMTP_FROM_NAME" envDefault:"Dream Journal"`
	SMTPUseTLS           bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	ReminderEmail        string `env:"REMINDER_EMAIL"`
	RedisAddr            string `env:"REDIS_ADDR"`
	RedisPassword        string `env:"REDIS_PASSWORD"`
	RedisDB              int    `env:"REDIS_DB" envDefault:"0"`
}

// CloudEnabled indica si hay un almacén remoto configurado.
func (c *Config) CloudEnabled() bool {
	return c != nil && c.DatabaseURL != ""
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
