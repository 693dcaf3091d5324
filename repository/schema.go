package repository

import (
	"context"

	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-sessions"
)

// CreateSchema creates the auth tables and their unique indexes if they
// do not exist. Sessions and verification tokens cascade on user delete.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	if _, err := db.NewCreateTable().
		Model((*auth.AuthSession)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return err
	}

	if _, err := db.NewCreateTable().
		Model((*auth.VerificationToken)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return err
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*auth.AuthSession)(nil), "uq_auth_sessions_user_token", []string{"user_id", "refresh_token"}},
		{(*auth.VerificationToken)(nil), "uq_verification_tokens_user_token", []string{"user_id", "token"}},
	}

	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Unique().
			IfNotExists().
			Column(idx.columns...).
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}
