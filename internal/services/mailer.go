package services

import (
	"context"
	"log/slog"
)

// Mailer delivers login links. SendLoginLink reports whether the link left
// the process; a false result with a nil error means it was only logged.
type Mailer interface {
	SendLoginLink(ctx context.Context, email, link string) (bool, error)
}

// LogMailer writes links to the log instead of sending them. It is the
// default until an email provider is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendLoginLink(ctx context.Context, email, link string) (bool, error) {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "magic link", "email", email, "link", link)
	return false, nil
}
