package activitymap_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	auth "github.com/goliatone/go-auth-sessions"
	"github.com/goliatone/go-auth-sessions/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventLoginSuccess,
		UserID:     100,
		Metadata:   map[string]any{"ip": "10.0.0.1"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "100" {
		t.Fatalf("expected actor_id 100, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventLoginSuccess) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventLoginSuccess, out.Verb)
	}
	if out.ObjectType != "user" || out.ObjectID != "100" {
		t.Fatalf("expected object user/100, got %q/%q", out.ObjectType, out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata["ip"] != "10.0.0.1" {
		t.Fatalf("expected metadata ip, got %#v", out.Metadata)
	}
	if out.Metadata[activitymap.MetadataKeyOutcome] != "success" {
		t.Fatalf("expected outcome success, got %#v", out.Metadata[activitymap.MetadataKeyOutcome])
	}
}

func TestNormalizeAnonymousAndOptions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	out := activitymap.Normalize(
		auth.ActivityEvent{EventType: auth.ActivityEventLoginFailure},
		activitymap.WithChannel("web"),
		activitymap.WithObjectType("account"),
		activitymap.WithClock(func() time.Time { return now }),
	)

	if out.ActorID != "anonymous" {
		t.Fatalf("expected anonymous actor, got %q", out.ActorID)
	}
	if out.ObjectID != "" {
		t.Fatalf("expected empty object id, got %q", out.ObjectID)
	}
	if out.Channel != "web" || out.ObjectType != "account" {
		t.Fatalf("options not applied: %+v", out)
	}
	if out.OccurredAt.Location() != time.UTC || !out.OccurredAt.Equal(now) {
		t.Fatalf("expected clock time in UTC, got %v", out.OccurredAt)
	}
	if out.Metadata[activitymap.MetadataKeyOutcome] != "failure" {
		t.Fatalf("expected outcome failure, got %#v", out.Metadata)
	}
}

func TestNormalizeDoesNotMutateEvent(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"k": "v"}
	out := activitymap.Normalize(auth.ActivityEvent{EventType: auth.ActivityEventRefreshSuccess, UserID: 1, Metadata: meta})
	out.Metadata["k"] = "changed"

	if meta["k"] != "v" {
		t.Fatalf("event metadata was mutated")
	}
	if _, ok := meta[activitymap.MetadataKeyOutcome]; ok {
		t.Fatalf("outcome leaked into event metadata")
	}
}

func TestNormalizeWithoutOutcome(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{EventType: auth.ActivityEventLogout, UserID: 3})
	if out.Metadata != nil {
		t.Fatalf("expected nil metadata, got %#v", out.Metadata)
	}
}

type lineLogger struct{ lines []string }

func (l *lineLogger) Debug(format string, args ...any) {}
func (l *lineLogger) Warn(format string, args ...any)  {}
func (l *lineLogger) Error(format string, args ...any) {}
func (l *lineLogger) Info(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestLogSink(t *testing.T) {
	logger := &lineLogger{}
	sink := activitymap.LogSink(logger)

	err := sink.Record(context.Background(), auth.ActivityEvent{
		EventType:  auth.ActivityEventSignup,
		UserID:     7,
		OccurredAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logger.lines) != 1 {
		t.Fatalf("expected one line, got %d", len(logger.lines))
	}

	raw := strings.TrimPrefix(logger.lines[0], "activity ")
	var rec activitymap.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("line is not a JSON record: %v", err)
	}
	if rec.Verb != string(auth.ActivityEventSignup) || rec.ActorID != "7" {
		t.Fatalf("unexpected record %+v", rec)
	}
}
