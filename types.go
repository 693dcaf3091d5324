package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// UserFilter selects a user by id and/or email. Zero fields are ignored.
type UserFilter struct {
	ID    int64
	Email string
}

// UserService is the user management collaborator. CreateUser and
// ValidateUser return a nil user, not an error, for the expected
// "email taken" and "wrong credentials" outcomes.
type UserService interface {
	CreateUser(ctx context.Context, payload SignupPayload) (*User, error)
	ValidateUser(ctx context.Context, payload LoginPayload) (*User, error)
	GetUser(ctx context.Context, filter UserFilter) (*User, error)
	ActivateUser(ctx context.Context, userID int64) (*User, error)
}

// SessionStore persists one AuthSession per (userID, refresh token).
type SessionStore interface {
	// Save fails with ErrRecordConflict if the pair already exists.
	Save(ctx context.Context, userID int64, token string, expiresAt time.Time, opts ...SessionOption) (*AuthSession, error)
	// Update swaps oldToken for newToken in a single conditional write.
	// It fails with ErrRecordNotFound when no row matches, including
	// when a concurrent Update already rotated oldToken out.
	Update(ctx context.Context, userID int64, newToken, oldToken string, expiresAt time.Time) (*AuthSession, error)
	// Find returns nil, nil when no row matches
	Find(ctx context.Context, userID int64, token string) (*AuthSession, error)
	// Delete fails with ErrRecordNotFound when no row matches
	Delete(ctx context.Context, userID int64, token string) error
}

// SessionRevoker is implemented by session stores that can end every
// session of a user at once. AuthService.RevokeSessions requires it.
type SessionRevoker interface {
	// RevokeAll returns how many sessions were ended
	RevokeAll(ctx context.Context, userID int64) (int64, error)
}

// VerificationTokenStore persists email verification tokens.
type VerificationTokenStore interface {
	// Create fails with ErrRecordConflict on a token collision
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*VerificationToken, error)
	// Find returns nil, nil when no row matches
	Find(ctx context.Context, userID int64, token string) (*VerificationToken, error)
	Delete(ctx context.Context, token *VerificationToken) error
}

// Mailer delivers rendered emails
type Mailer interface {
	SendEmail(ctx context.Context, from, to, subject, html string) error
}

// SessionMeta describes the client that opened a session.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// SessionOptions holds the optional AuthSession columns.
type SessionOptions struct {
	DeviceInfo string
	IPAddress  string
}

// SessionOption configures optional session attributes on Save
type SessionOption func(*SessionOptions)

func WithDeviceInfo(info string) SessionOption {
	return func(o *SessionOptions) {
		o.DeviceInfo = info
	}
}

func WithIPAddress(ip string) SessionOption {
	return func(o *SessionOptions) {
		o.IPAddress = ip
	}
}

// ApplySessionOptions resolves opts, used by SessionStore implementations.
func ApplySessionOptions(opts ...SessionOption) SessionOptions {
	out := SessionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
