// Package mailer provides auth.Mailer implementations: an SMTP relay, a
// directory of .eml files and a log only mailer.
package mailer

import (
	auth "github.com/goliatone/go-auth-sessions"
)

// FromConfig picks a mailer: SMTP when mail_host is set, a directory when
// mail_dir is set, otherwise the log mailer.
func FromConfig(cfg auth.Config, logger auth.Logger) (auth.Mailer, error) {
	switch {
	case cfg.MailHost != "":
		return NewSMTP(SMTPConfig{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
		}), nil
	case cfg.MailDir != "":
		return NewDir(cfg.MailDir)
	default:
		return NewLog(logger), nil
	}
}
