package repository

import (
	"database/sql"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/jackc/pgx/v5/pgconn"

	auth "github.com/goliatone/go-auth-sessions"
)

// pgUniqueViolation is the postgres SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// IsUniqueViolation reports unique constraint failures for postgres (pgx)
// and sqlite drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

func conflictError(err error, table string) error {
	return goerrors.Wrap(err, goerrors.CategoryConflict, auth.ErrRecordConflict.Message).
		WithTextCode(auth.TextCodeRecordConflict).
		WithCode(goerrors.CodeConflict).
		WithMetadata(map[string]any{
			auth.MetaContext: auth.ContextServer,
			"table":          table,
		})
}

func notFoundError(table string, metadata map[string]any) error {
	meta := map[string]any{
		auth.MetaContext: auth.ContextServer,
		"table":          table,
	}
	for k, v := range metadata {
		meta[k] = v
	}
	return goerrors.New(auth.ErrRecordNotFound.Message, goerrors.CategoryNotFound).
		WithTextCode(auth.TextCodeRecordNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(meta)
}

// classifyWrite turns driver errors from inserts and updates into store errors
func classifyWrite(err error, table string) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return conflictError(err, table)
	}
	return err
}
