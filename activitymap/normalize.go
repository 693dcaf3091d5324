// Package activitymap flattens auth activity events into a transport
// neutral record for audit logs and queues.
package activitymap

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	auth "github.com/goliatone/go-auth-sessions"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	anonymousActor    = "anonymous"
)

// MetadataKeyOutcome is set to "success" or "failure" when the event type
// carries an outcome suffix.
const MetadataKeyOutcome = "outcome"

// Record is the normalized shape of an auth.ActivityEvent
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Option func(*options)

type options struct {
	channel    string
	objectType string
	now        func() time.Time
}

func WithChannel(channel string) Option {
	return func(o *options) {
		if c := strings.TrimSpace(channel); c != "" {
			o.channel = c
		}
	}
}

func WithObjectType(objectType string) Option {
	return func(o *options) {
		if t := strings.TrimSpace(objectType); t != "" {
			o.objectType = t
		}
	}
}

// WithClock sets the time used for events without OccurredAt
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Normalize converts event to a Record. Events without a user, such as a
// failed login for an unknown email, are attributed to "anonymous".
func Normalize(event auth.ActivityEvent, opts ...Option) Record {
	o := options{channel: defaultChannel, objectType: defaultObjectType, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	actor := anonymousActor
	objectID := ""
	if event.UserID > 0 {
		actor = strconv.FormatInt(event.UserID, 10)
		objectID = actor
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now()
	}

	return Record{
		ActorID:    actor,
		Verb:       string(event.EventType),
		ObjectType: o.objectType,
		ObjectID:   objectID,
		Channel:    o.channel,
		Metadata:   metadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// LogSink returns an auth.ActivitySink that writes every event as a JSON
// Record at info level.
func LogSink(logger auth.Logger, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		raw, err := json.Marshal(Normalize(event, opts...))
		if err != nil {
			return err
		}
		logger.Info("activity %s", raw)
		return nil
	})
}

func metadata(event auth.ActivityEvent) map[string]any {
	var out map[string]any
	if len(event.Metadata) > 0 {
		out = make(map[string]any, len(event.Metadata)+1)
		for k, v := range event.Metadata {
			out[k] = v
		}
	}

	verb := string(event.EventType)
	for _, outcome := range []string{"success", "failure"} {
		if strings.HasSuffix(verb, "."+outcome) {
			if out == nil {
				out = map[string]any{}
			}
			out[MetadataKeyOutcome] = outcome
		}
	}
	return out
}
