package email

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender define la interfaz para los correos del diario.
type Sender interface {
	SendPasswordResetCode(ctx context.Context, toEmail string, code string, expiresAt time.Time) error
	SendReminder(ctx context.Context, toEmail, subject, body string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

func (s *disabledSender) SendPasswordResetCode(_ context.Context, _ string, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) SendReminder(_ context.Context, _, _, _ string) error {
	return s.err()
}

// MailNotifier entrega recordatorios por correo a un destinatario fijo.
type MailNotifier struct {
	sender Sender
	to     string
}

func NewMailNotifier(sender Sender, to string) (*MailNotifier, error) {
	if sender == nil {
		return nil, errors.New("email sender is required")
	}
	if strings.TrimSpace(to) == "" {
		return nil, errors.New("reminder recipient is required")
	}
	return &MailNotifier{sender: sender, to: strings.TrimSpace(to)}, nil
}

func (n *MailNotifier) Notify(ctx context.Context, title, body string) error {
	return n.sender.SendReminder(ctx, n.to, title, body)
}

// LogNotifier deja el recordatorio en el log cuando no hay SMTP configurado.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, title, body string) error {
	n.logger.Info("dream reminder", zap.String("title", title), zap.String("body", body))
	return nil
}
