package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dream-journal/internal/config"
)

// NewPool construye el pool hacia el almacén remoto de documentos.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

const cloudSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		otp_code_hash TEXT NOT NULL DEFAULT '',
		otp_expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cloud_dreams (
		doc_id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		local_id BIGINT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, local_id)
	);

	CREATE INDEX IF NOT EXISTS idx_cloud_dreams_user ON cloud_dreams(user_id);
`

// EnsureCloudSchema crea las tablas remotas si no existen. Es idempotente.
func EnsureCloudSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, cloudSchema)
	return err
}
