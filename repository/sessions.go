package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-sessions"
)

const sessionsTable = "auth_sessions"

// Sessions implements auth.SessionStore using Bun. Rotation is a single
// conditional UPDATE keyed by the old token, so the database decides
// which of two racing refreshes wins.
type Sessions struct {
	db   *bun.DB
	repo repository.Repository[*auth.AuthSession]
}

var (
	_ auth.SessionStore   = (*Sessions)(nil)
	_ auth.SessionRevoker = (*Sessions)(nil)
)

// NewSessions creates a new store.
func NewSessions(db *bun.DB) *Sessions {
	repo := repository.NewRepository[*auth.AuthSession](db, repository.ModelHandlers[*auth.AuthSession]{
		NewRecord: func() *auth.AuthSession { return &auth.AuthSession{} },
		GetID: func(s *auth.AuthSession) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *auth.AuthSession, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "refresh_token"
		},
	})

	return &Sessions{db: db, repo: repo}
}

// Save implements auth.SessionStore.
func (s *Sessions) Save(ctx context.Context, userID int64, token string, expiresAt time.Time, opts ...auth.SessionOption) (*auth.AuthSession, error) {
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

	if _, err := s.db.NewInsert().Model(session).Exec(ctx); err != nil {
		return nil, classifyWrite(err, sessionsTable)
	}
	return session, nil
}

// Update implements auth.SessionStore.
func (s *Sessions) Update(ctx context.Context, userID int64, newToken, oldToken string, expiresAt time.Time) (*auth.AuthSession, error) {
	session := &auth.AuthSession{}

	err := s.db.NewUpdate().
		Model(session).
		Set("refresh_token = ?", newToken).
		Set("expires_at = ?", expiresAt.UTC()).
		Where("user_id = ?", userID).
		Where("refresh_token = ?", oldToken).
		Where("is_revoked = ?", false).
		Returning("*").
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, notFoundError(sessionsTable, map[string]any{"user_id": userID})
		}
		return nil, classifyWrite(err, sessionsTable)
	}

	return session, nil
}

// Find implements auth.SessionStore.
func (s *Sessions) Find(ctx context.Context, userID int64, token string) (*auth.AuthSession, error) {
	session, err := s.repo.GetByIdentifier(ctx, token, byUserID(userID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// Delete implements auth.SessionStore.
func (s *Sessions) Delete(ctx context.Context, userID int64, token string) error {
	res, err := s.db.NewDelete().
		Model((*auth.AuthSession)(nil)).
		Where("user_id = ?", userID).
		Where("refresh_token = ?", token).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFoundError(sessionsTable, map[string]any{"user_id": userID})
	}
	return nil
}

// RevokeAll implements auth.SessionRevoker. Rows are flagged rather than
// deleted so they stay around for auditing until PurgeExpired drops them.
func (s *Sessions) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.NewUpdate().
		Model((*auth.AuthSession)(nil)).
		Set("is_revoked = ?", true).
		Where("user_id = ?", userID).
		Where("is_revoked = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeExpired removes sessions that expired before now
func (s *Sessions) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*auth.AuthSession)(nil)).
		Where("expires_at < ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func byUserID(userID int64) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.user_id = ?", userID)
	}
}
