package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-auth-sessions"
	"github.com/goliatone/go-auth-sessions/repository"
)

func setupDB(t *testing.T) (*bun.DB, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, repository.NewManager(bunDB).Migrate(context.Background()))

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}
	return bunDB, cleanup
}

func seedUser(t *testing.T, db *bun.DB, email string) *auth.User {
	t.Helper()

	user, err := repository.NewUsers(db).Create(context.Background(), &auth.User{
		Email:        email,
		Name:         "Seed",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	return user
}
