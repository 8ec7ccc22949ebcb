package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"dream-journal/internal/domain"
)

const (
	prefNotificationsEnabled = "notifications_enabled"
	prefNotificationHour     = "notification_hour"
	prefNotificationMinute   = "notification_minute"
)

// SettingsRepository guarda las preferencias como pares clave-valor.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	SetNotificationsEnabled(ctx context.Context, enabled bool) error
	SetNotificationTime(ctx context.Context, hour, minute int) error
}

type SQLiteSettingsRepository struct {
	db *sql.DB
}

func NewSQLiteSettingsRepository(db *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{db: db}
}

// Get devuelve las preferencias, usando los valores por defecto para claves ausentes.
func (r *SQLiteSettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM preferences WHERE key IN (?, ?, ?)`,
		prefNotificationsEnabled, prefNotificationHour, prefNotificationMinute)
	if err != nil {
		return settings, fmt.Errorf("read preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, err
		}
		switch key {
		case prefNotificationsEnabled:
			if b, err := strconv.ParseBool(value); err == nil {
				settings.NotificationsEnabled = b
			}
		case prefNotificationHour:
			if n, err := strconv.Atoi(value); err == nil {
				settings.NotificationHour = n
			}
		case prefNotificationMinute:
			if n, err := strconv.Atoi(value); err == nil {
				settings.NotificationMinute = n
			}
		}
	}
	return settings, rows.Err()
}

func (r *SQLiteSettingsRepository) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	return r.put(ctx, map[string]string{
		prefNotificationsEnabled: strconv.FormatBool(enabled),
	})
}

func (r *SQLiteSettingsRepository) SetNotificationTime(ctx context.Context, hour, minute int) error {
	return r.put(ctx, map[string]string{
		prefNotificationHour:   strconv.Itoa(hour),
		prefNotificationMinute: strconv.Itoa(minute),
	})
}

func (r *SQLiteSettingsRepository) put(ctx context.Context, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	for k, v := range values {
		if _, err := tx.ExecContext(ctx, query, k, v); err != nil {
			return fmt.Errorf("write preference %s: %w", k, err)
		}
	}
	return tx.Commit()
}
