package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"dream-journal/internal/domain"
)

type mockSettingsRepo struct {
	settings domain.Settings
}

func (m *mockSettingsRepo) Get(_ context.Context) (domain.Settings, error) {
	return m.settings, nil
}

func (m *mockSettingsRepo) SetNotificationsEnabled(_ context.Context, enabled bool) error {
	m.settings.NotificationsEnabled = enabled
	return nil
}

func (m *mockSettingsRepo) SetNotificationTime(_ context.Context, hour, minute int) error {
	m.settings.NotificationHour = hour
	m.settings.NotificationMinute = minute
	return nil
}

type mockReminders struct {
	scheduled [][2]int
	cancels   int
}

func (m *mockReminders) Schedule(hour, minute int) { m.scheduled = append(m.scheduled, [2]int{hour, minute}) }
func (m *mockReminders) Cancel() { m.cancels++ }

func TestSettingsService(t *testing.T) {
	ctx := context.Background()
	repo := &mockSettingsRepo{settings: domain.DefaultSettings()}
	reminders := &mockReminders{}
	svc := NewSettingsService(zap.NewNop(), repo, reminders)

	if _, err := svc.SetNotificationTime(ctx, 6, 15); err != nil {
		t.Fatalf("set time: %v", err)
	}
	if len(reminders.scheduled) != 0 {
		t.Fatalf("disabled reminders must not be scheduled")
	}

	settings, err := svc.SetNotificationsEnabled(ctx, true)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !settings.NotificationsEnabled || len(reminders.scheduled) != 1 || reminders.scheduled[0] != [2]int{6, 15} {
		t.Fatalf("expected schedule at 06:15, got %+v %+v", settings, reminders.scheduled)
	}

	if _, err := svc.SetNotificationTime(ctx, 22, 45); err != nil {
		t.Fatalf("set time: %v", err)
	}
	if len(reminders.scheduled) != 2 || reminders.scheduled[1] != [2]int{22, 45} {
		t.Fatalf("expected reschedule at 22:45, got %+v", reminders.scheduled)
	}

	if _, err := svc.SetNotificationsEnabled(ctx, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if reminders.cancels != 1 {
		t.Fatalf("expected cancel, got %d", reminders.cancels)
	}

	if _, err := svc.SetNotificationTime(ctx, 24, 0); !errors.Is(err, ErrInvalidNotificationTime) {
		t.Fatalf("expected ErrInvalidNotificationTime, got %v", err)
	}
	if _, err := svc.SetNotificationTime(ctx, 10, 60); !errors.Is(err, ErrInvalidNotificationTime) {
		t.Fatalf("expected ErrInvalidNotificationTime, got %v", err)
	}
}

func TestSettingsServiceRestore(t *testing.T) {
	repo := &mockSettingsRepo{settings: domain.Settings{NotificationsEnabled: true, NotificationHour: 21}}
	reminders := &mockReminders{}
	if _, err := NewSettingsService(nil, repo, reminders).Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(reminders.scheduled) != 1 || reminders.scheduled[0] != [2]int{21, 0} {
		t.Fatalf("expected persisted reminder to be scheduled, got %+v", reminders.scheduled)
	}
}

func TestNextRun(t *testing.T) {
	loc := time.FixedZone("test", 3*3600)
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"later today", time.Date(2024, 5, 1, 20, 0, 0, 0, loc), time.Date(2024, 5, 1, 21, 0, 0, 0, loc)},
		{"exactly now goes to tomorrow", time.Date(2024, 5, 1, 21, 0, 0, 0, loc), time.Date(2024, 5, 2, 21, 0, 0, 0, loc)},
		{"already passed", time.Date(2024, 5, 31, 22, 30, 0, 0, loc), time.Date(2024, 6, 1, 21, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextRun(tc.now, 21, 0); !got.Equal(tc.want) {
				t.Fatalf("NextRun = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFollowingRun(t *testing.T) {
	loc := time.FixedZone("test", -3*3600)
	prev := time.Date(2024, 5, 1, 21, 0, 0, 0, loc)
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"clock moved forward", prev.Add(time.Second), time.Date(2024, 5, 2, 21, 0, 0, 0, loc)},
		{"clock stepped back", prev.Add(-2 * time.Minute), time.Date(2024, 5, 2, 21, 0, 0, 0, loc)},
		{"clock jumped days ahead", time.Date(2024, 5, 4, 22, 0, 0, 0, loc), time.Date(2024, 5, 5, 21, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := followingRun(prev, tc.now, 21, 0); !got.Equal(tc.want) {
				t.Fatalf("followingRun = %v, want %v", got, tc.want)
			}
		})
	}
}

type chanNotifier struct {
	mu    sync.Mutex
	calls int
	ch    chan struct{}
}

func (n *chanNotifier) Notify(_ context.Context, title, body string) error {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	select {
	case n.ch <- struct{}{}:
	default:
	}
	return nil
}

func TestReminderSchedulerFiresAndCancels(t *testing.T) {
	notifier := &chanNotifier{ch: make(chan struct{}, 1)}
	s := NewReminderScheduler(zap.NewNop(), notifier)
	// Reloj fijo 20 ms antes de las 21:00.
	fixed := time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC).Add(-20 * time.Millisecond)
	s.now = func() time.Time { return fixed }

	s.Schedule(21, 0)
	if next := s.Next(); !next.Equal(time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next run: %v", next)
	}
	select {
	case <-notifier.ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("reminder did not fire")
	}

	// El reloj no avanzó: la siguiente ejecución debe ser mañana, no otra vez hoy.
	tomorrow := time.Date(2024, 5, 2, 21, 0, 0, 0, time.UTC)
	deadline := time.Now().Add(2 * time.Second)
	for !s.Next().Equal(tomorrow) {
		if time.Now().After(deadline) {
			t.Fatalf("expected next run %v, got %v", tomorrow, s.Next())
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	notifier.mu.Lock()
	calls := notifier.calls
	notifier.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly one delivery, got %d", calls)
	}

	s.Cancel()
	if !s.Next().IsZero() {
		t.Fatalf("expected no next run after cancel")
	}
	s.Cancel()
}

func TestReminderSchedulerReplace(t *testing.T) {
	notifier := &chanNotifier{ch: make(chan struct{}, 1)}
	s := NewReminderScheduler(nil, notifier)
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.Schedule(9, 0)
	s.Schedule(7, 30)
	if next := s.Next(); !next.Equal(time.Date(2024, 5, 2, 7, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected replaced schedule, got %v", next)
	}
	s.Cancel()

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if notifier.calls != 0 {
		t.Fatalf("far-away reminders must not fire, got %d", notifier.calls)
	}
}
