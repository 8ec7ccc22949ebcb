package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	ReminderTitle = "Dream journal"
	ReminderBody  = "Don't forget to write down your dream!"
)

// Notifier entrega el recordatorio diario al usuario.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// ReminderScheduler mantiene a lo sumo un recordatorio diario activo con un
// timer en proceso. Se usa cuando no hay Redis para el planificador asynq.
// Schedule reemplaza el anterior; Cancel lo detiene.
type ReminderScheduler struct {
	logger   *zap.Logger
	notifier Notifier
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	nextMu sync.Mutex
	next   time.Time
}

func NewReminderScheduler(logger *zap.Logger, notifier Notifier) *ReminderScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderScheduler{
		logger:   logger,
		notifier: notifier,
		now:      time.Now,
	}
}

// NextRun calcula la próxima ocurrencia de hh:mm en la zona de now:
// hoy si todavía no pasó, si no mañana.
func NextRun(now time.Time, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !now.Before(target) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// followingRun calcula la ejecución posterior a prev. Si el reloj de pared
// retrocedió, NextRun repetiría prev; en ese caso avanza desde prev.
func followingRun(prev, now time.Time, hour, minute int) time.Time {
	next := NextRun(now, hour, minute)
	if !next.After(prev) {
		next = NextRun(prev, hour, minute)
	}
	return next
}

func (s *ReminderScheduler) Schedule(hour, minute int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	next := NextRun(s.now(), hour, minute)
	s.setNext(next)

	go s.loop(ctx, done, hour, minute, next)
	s.logger.Info("reminder scheduled", zap.Time("next_run", next))
}

func (s *ReminderScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.logger.Info("reminder cancelled")
	}
	s.stopLocked()
}

// Next devuelve la próxima ejecución programada; cero si no hay ninguna.
func (s *ReminderScheduler) Next() time.Time {
	s.nextMu.Lock()
	defer s.nextMu.Unlock()
	return s.next
}

func (s *ReminderScheduler) setNext(t time.Time) {
	s.nextMu.Lock()
	s.next = t
	s.nextMu.Unlock()
}

func (s *ReminderScheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.setNext(time.Time{})
}

func (s *ReminderScheduler) loop(ctx context.Context, done chan struct{}, hour, minute int, next time.Time) {
	defer close(done)
	for {
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.fire(ctx)

		if ctx.Err() != nil {
			return
		}
		next = followingRun(next, s.now(), hour, minute)
		s.setNext(next)
	}
}

func (s *ReminderScheduler) fire(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ReminderTitle, ReminderBody); err != nil {
		s.logger.Warn("reminder delivery failed", zap.Error(err))
	}
}
