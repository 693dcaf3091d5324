package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// VerificationTokenBytes is the entropy of a verification token
	VerificationTokenBytes = 32
	// MaxVerificationTokenAttempts bounds the retry loop on collisions
	MaxVerificationTokenAttempts = 15
	// DefaultVerificationTokenTTL applies when no TTL is configured
	DefaultVerificationTokenTTL = 24 * time.Hour
)

// VerificationTokenGenerator issues collision safe one time tokens
type VerificationTokenGenerator struct {
	store  VerificationTokenStore
	ttl    time.Duration
	random io.Reader
	now    func() time.Time
	logger Logger
}

// NewVerificationTokenGenerator returns a generator persisting tokens in store
func NewVerificationTokenGenerator(store VerificationTokenStore, ttl time.Duration) *VerificationTokenGenerator {
	if ttl <= 0 {
		ttl = DefaultVerificationTokenTTL
	}
	return &VerificationTokenGenerator{
		store:  store,
		ttl:    ttl,
		random: rand.Reader,
		now:    time.Now,
		logger: defLogger{},
	}
}

func (g *VerificationTokenGenerator) WithLogger(logger Logger) *VerificationTokenGenerator {
	if logger != nil {
		g.logger = logger
	}
	return g
}

func (g *VerificationTokenGenerator) WithClock(now func() time.Time) *VerificationTokenGenerator {
	if now != nil {
		g.now = now
	}
	return g
}

// WithRandom replaces the entropy source
func (g *VerificationTokenGenerator) WithRandom(r io.Reader) *VerificationTokenGenerator {
	if r != nil {
		g.random = r
	}
	return g
}

// TTL is the configured token lifetime
func (g *VerificationTokenGenerator) TTL() time.Duration {
	return g.ttl
}

// Generate persists a fresh token for userID and returns its raw value.
// Collisions are retried with a new token up to MaxVerificationTokenAttempts.
func (g *VerificationTokenGenerator) Generate(ctx context.Context, userID int64) (string, error) {
	for attempt := 1; attempt <= MaxVerificationTokenAttempts; attempt++ {
		token, err := g.randomToken()
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random bytes").
				WithTextCode(TextCodeInternalError).
				WithCode(goerrors.CodeInternal)
		}

		_, err = g.store.Create(ctx, userID, token, g.now().Add(g.ttl))
		if err == nil {
			return token, nil
		}

		if !IsConflict(err) {
			return "", wrapInternal(err, "failed to persist verification token")
		}

		g.logger.Warn("verification token collision for user %d, attempt %d", userID, attempt)
	}

	return "", ErrExhaustedRetries.Clone().WithMetadata(map[string]any{
		MetaContext: ContextServer,
		"user_id":   userID,
		"attempts":  MaxVerificationTokenAttempts,
	})
}

func (g *VerificationTokenGenerator) randomToken() (string, error) {
	buf := make([]byte, VerificationTokenBytes)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
