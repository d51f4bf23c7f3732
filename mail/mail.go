// Package mail delivers one-time PINs to users. Delivery is best-effort:
// callers log failures and continue, since the PIN remains retrievable in
// skip-PIN mode and re-requestable otherwise.
package mail

import (
	"context"
	"log/slog"
)

// Mailer sends a one-time PIN to an email address.
type Mailer interface {
	SendPinEmail(ctx context.Context, email, pin string) error
}

// LogMailer writes PINs to the structured log instead of sending mail.
// Used in development when no mail provider is configured.
type LogMailer struct {
	logger *slog.Logger
}

var _ Mailer = (*LogMailer)(nil)

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "mail")}
}

func (m *LogMailer) SendPinEmail(ctx context.Context, email, pin string) error {
	m.logger.InfoContext(ctx, "pin issued (mail delivery disabled)",
		slog.String("email", email),
		slog.String("pin", pin))
	return nil
}
