package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-sessions"
)

const verificationTokensTable = "verification_tokens"

// VerificationTokens implements auth.VerificationTokenStore using Bun.
type VerificationTokens struct {
	db   *bun.DB
	repo repository.Repository[*auth.VerificationToken]
}

var _ auth.VerificationTokenStore = (*VerificationTokens)(nil)

func NewVerificationTokens(db *bun.DB) *VerificationTokens {
	repo := repository.NewRepository[*auth.VerificationToken](db, repository.ModelHandlers[*auth.VerificationToken]{
		NewRecord: func() *auth.VerificationToken { return &auth.VerificationToken{} },
		GetID: func(v *auth.VerificationToken) uuid.UUID {
			if v == nil {
				return uuid.Nil
			}
			return v.ID
		},
		SetID: func(v *auth.VerificationToken, id uuid.UUID) {
			if v != nil {
				v.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &VerificationTokens{db: db, repo: repo}
}

// Create implements auth.VerificationTokenStore.
func (r *VerificationTokens) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*auth.VerificationToken, error) {
	now := time.Now().UTC()
	record := &auth.VerificationToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		CreatedAt: &now,
		ExpiresAt: expiresAt.UTC(),
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, classifyWrite(err, verificationTokensTable)
	}
	return record, nil
}

// Find implements auth.VerificationTokenStore.
func (r *VerificationTokens) Find(ctx context.Context, userID int64, token string) (*auth.VerificationToken, error) {
	record, err := r.repo.GetByIdentifier(ctx, token, byUserID(userID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// Delete implements auth.VerificationTokenStore.
func (r *VerificationTokens) Delete(ctx context.Context, token *auth.VerificationToken) error {
	if token == nil {
		return notFoundError(verificationTokensTable, nil)
	}

	res, err := r.db.NewDelete().
		Model((*auth.VerificationToken)(nil)).
		Where("id = ?", token.ID).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFoundError(verificationTokensTable, map[string]any{"id": token.ID.String()})
	}
	return nil
}

// DeleteExpired removes tokens that expired before now. Expired tokens are
// otherwise kept until an account is activated.
func (r *VerificationTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*auth.VerificationToken)(nil)).
		Where("expires_at < ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
