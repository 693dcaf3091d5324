package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignup             ActivityEventType = "auth.signup"
	ActivityEventLoginSuccess       ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure       ActivityEventType = "auth.login.failure"
	ActivityEventRefreshSuccess     ActivityEventType = "auth.refresh.success"
	ActivityEventRefreshFailure     ActivityEventType = "auth.refresh.failure"
	ActivityEventLogout             ActivityEventType = "auth.logout"
	ActivityEventSessionsRevoked    ActivityEventType = "auth.sessions.revoked"
	ActivityEventEmailVerified      ActivityEventType = "auth.email.verified"
	ActivityEventVerificationResent ActivityEventType = "auth.email.verification_resent"
	ActivityEventEmailDispatchError ActivityEventType = "auth.email.dispatch_failure"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     int64
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// MultiActivitySink fans out events to every sink, returning the first error.
type MultiActivitySink []ActivitySink

func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
