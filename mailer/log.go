package mailer

import (
	"context"

	auth "github.com/goliatone/go-auth-sessions"
)

// Log only logs the envelope of each message
type Log struct {
	logger auth.Logger
}

var _ auth.Mailer = (*Log)(nil)

func NewLog(logger auth.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SendEmail(_ context.Context, from, to, subject, _ string) error {
	l.logger.Info("mail from=%s to=%s subject=%q", from, to, subject)
	return nil
}
