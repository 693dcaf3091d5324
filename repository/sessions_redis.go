package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	auth "github.com/goliatone/go-auth-sessions"
)

const sessionKeyPrefix = "auth:session:"

var errSessionGone = errors.New("session gone")

// stringGetter is satisfied by both the client and a WATCH transaction
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisSessions implements auth.SessionStore on Redis. Each session is one
// key derived from the user id and a hash of the refresh token, expiring
// with the session. Rotation runs under WATCH on the old key, so a
// concurrent rotation aborts the transaction.
type RedisSessions struct {
	client redis.UniversalClient
	prefix string
}

var (
	_ auth.SessionStore   = (*RedisSessions)(nil)
	_ auth.SessionRevoker = (*RedisSessions)(nil)
)

// RedisSessionsOption configures a RedisSessions instance.
type RedisSessionsOption func(*RedisSessions)

// WithKeyPrefix overrides the "auth:session:" key prefix
func WithKeyPrefix(prefix string) RedisSessionsOption {
	return func(r *RedisSessions) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func NewRedisSessions(client redis.UniversalClient, opts ...RedisSessionsOption) *RedisSessions {
	r := &RedisSessions{client: client, prefix: sessionKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// NewRedisClient parses url and pings the server
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Save implements auth.SessionStore.
func (r *RedisSessions) Save(ctx context.Context, userID int64, token string, expiresAt time.Time, opts ...auth.SessionOption) (*auth.AuthSession, error) {
	o := auth.ApplySessionOptions(opts...)
	now := time.Now().UTC()

	session := &auth.AuthSession{
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: token,
		ExpiresAt:    expiresAt.UTC(),
		CreatedAt:    &now,
		DeviceInfo:   o.DeviceInfo,
		IPAddress:    o.IPAddress,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	ok, err := r.client.SetNX(ctx, r.key(userID, token), data, ttlUntil(expiresAt)).Result()
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, conflictError(fmt.Errorf("session key exists"), sessionsTable)
	}
	return session, nil
}

// Update implements auth.SessionStore.
func (r *RedisSessions) Update(ctx context.Context, userID int64, newToken, oldToken string, expiresAt time.Time) (*auth.AuthSession, error) {
	oldKey := r.key(userID, oldToken)
	newKey := r.key(userID, newToken)

	var rotated *auth.AuthSession
	txf := func(tx *redis.Tx) error {
		session, err := r.load(ctx, tx, oldKey)
		if err != nil {
			return err
		}

		if session == nil || session.IsRevoked {
			return errSessionGone
		}

		session.RefreshToken = newToken
		session.ExpiresAt = expiresAt.UTC()

		data, err := json.Marshal(session)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, oldKey)
			pipe.Set(ctx, newKey, data, ttlUntil(expiresAt))
			return nil
		})
		if err != nil {
			return err
		}

		rotated = session
		return nil
	}

	err := r.client.Watch(ctx, txf, oldKey)
	if errors.Is(err, errSessionGone) || errors.Is(err, redis.TxFailedErr) {
		return nil, notFoundError(sessionsTable, map[string]any{"user_id": userID})
	}
	if err != nil {
		return nil, err
	}

	return rotated, nil
}

// Find implements auth.SessionStore.
func (r *RedisSessions) Find(ctx context.Context, userID int64, token string) (*auth.AuthSession, error) {
	session, err := r.load(ctx, r.client, r.key(userID, token))
	if err != nil {
		return nil, err
	}

	if session != nil {
		session.RefreshToken = token
	}
	return session, nil
}

// Delete implements auth.SessionStore.
func (r *RedisSessions) Delete(ctx context.Context, userID int64, token string) error {
	n, err := r.client.Del(ctx, r.key(userID, token)).Result()
	if err != nil {
		return err
	}

	if n == 0 {
		return notFoundError(sessionsTable, map[string]any{"user_id": userID})
	}
	return nil
}

// RevokeAll implements auth.SessionRevoker. Keys expire with their session
// so there is nothing to keep for auditing, revoked sessions are deleted.
func (r *RedisSessions) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	pattern := fmt.Sprintf("%s%d:*", r.prefix, userID)

	var removed int64
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := r.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (r *RedisSessions) load(ctx context.Context, c stringGetter, key string) (*auth.AuthSession, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	session := &auth.AuthSession{}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// key never embeds the raw refresh token
func (r *RedisSessions) key(userID int64, token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%s%d:%s", r.prefix, userID, hex.EncodeToString(sum[:]))
}

func ttlUntil(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
