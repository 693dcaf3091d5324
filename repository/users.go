package repository

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-sessions"
)

const usersTable = "users"

// Users implements auth.UserRepository using Bun.
type Users struct {
	db bun.IDB
}

var _ auth.UserRepository = (*Users)(nil)

// NewUsers creates a new repository.
func NewUsers(db bun.IDB) *Users {
	return &Users{db: db}
}

// Create implements auth.UserRepository.
func (r *Users) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = &now
	user.UpdatedAt = &now

	if _, err := r.db.NewInsert().Model(user).Returning("*").Exec(ctx); err != nil {
		return nil, classifyWrite(err, usersTable)
	}
	return user, nil
}

// Find implements auth.UserRepository. Both filter fields must match when set.
func (r *Users) Find(ctx context.Context, filter auth.UserFilter) (*auth.User, error) {
	if filter.ID == 0 && filter.Email == "" {
		return nil, nil
	}

	user := &auth.User{}
	q := r.db.NewSelect().Model(user)
	if filter.ID != 0 {
		q = q.Where("?TableAlias.id = ?", filter.ID)
	}
	if filter.Email != "" {
		q = q.Where("?TableAlias.email = ?", filter.Email)
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Activate implements auth.UserRepository. Activating an active user is a no-op.
func (r *Users) Activate(ctx context.Context, userID int64) (*auth.User, error) {
	res, err := r.db.NewUpdate().
		Model((*auth.User)(nil)).
		Set("is_active = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, notFoundError(usersTable, map[string]any{"id": userID})
	}

	return r.Find(ctx, auth.UserFilter{ID: userID})
}
