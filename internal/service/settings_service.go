package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"dream-journal/internal/domain"
	"dream-journal/internal/repository"
)

var ErrInvalidNotificationTime = errors.New("invalid notification time")

// ReminderControl es lo que SettingsService necesita del planificador.
type ReminderControl interface {
	Schedule(hour, minute int)
	Cancel()
}

// Reminder es un planificador diario que además informa su próxima ejecución.
type Reminder interface {
	ReminderControl
	Next() time.Time
}

// SettingsService persiste las preferencias y mantiene el recordatorio alineado con ellas.
type SettingsService struct {
	logger    *zap.Logger
	repo      repository.SettingsRepository
	reminders ReminderControl
}

func NewSettingsService(logger *zap.Logger, repo repository.SettingsRepository, reminders ReminderControl) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{logger: logger, repo: repo, reminders: reminders}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.repo.Get(ctx)
}

// SetNotificationsEnabled guarda la preferencia y programa o cancela el recordatorio.
func (s *SettingsService) SetNotificationsEnabled(ctx context.Context, enabled bool) (domain.Settings, error) {
	if err := s.repo.SetNotificationsEnabled(ctx, enabled); err != nil {
		return domain.Settings{}, err
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	s.apply(settings)
	return settings, nil
}

// SetNotificationTime guarda la hora; si los recordatorios están activos se reprograman.
func (s *SettingsService) SetNotificationTime(ctx context.Context, hour, minute int) (domain.Settings, error) {
	if !domain.NewTimeOfDay(hour, minute).Valid() {
		return domain.Settings{}, ErrInvalidNotificationTime
	}
	if err := s.repo.SetNotificationTime(ctx, hour, minute); err != nil {
		return domain.Settings{}, err
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if settings.NotificationsEnabled {
		s.apply(settings)
	}
	return settings, nil
}

// Restore aplica las preferencias guardadas al arrancar.
func (s *SettingsService) Restore(ctx context.Context) (domain.Settings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	s.apply(settings)
	return settings, nil
}

func (s *SettingsService) apply(settings domain.Settings) {
	if s.reminders == nil {
		return
	}
	if settings.NotificationsEnabled {
		s.reminders.Schedule(settings.NotificationHour, settings.NotificationMinute)
		return
	}
	s.reminders.Cancel()
}
