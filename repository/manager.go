package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/uptrace/bun"
)

// Manager exposes all stores sharing one database handle
type Manager struct {
	db                 *bun.DB
	users              *Users
	sessions           *Sessions
	verificationTokens *VerificationTokens
}

func NewManager(db *bun.DB) *Manager {
	return &Manager{
		db:                 db,
		users:              NewUsers(db),
		sessions:           NewSessions(db),
		verificationTokens: NewVerificationTokens(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.users == nil || m.sessions == nil || m.verificationTokens == nil {
		return errors.New("repository stores should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f in a transaction, failing fast on a cancelled context.
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Migrate creates the schema
func (m *Manager) Migrate(ctx context.Context) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return CreateSchema(ctx, tx)
	})
}

func (m *Manager) Users() *Users {
	return m.users
}

func (m *Manager) Sessions() *Sessions {
	return m.sessions
}

func (m *Manager) VerificationTokens() *VerificationTokens {
	return m.verificationTokens
}

// HousekeepingOptions selects what Housekeep removes besides expired sessions
type HousekeepingOptions struct {
	// VerificationTokens also deletes expired verification tokens. Once a
	// row is gone its link reports an invalid token instead of an expired
	// one, so this is off unless configured.
	VerificationTokens bool
}

// HousekeepingResult counts the rows removed by Housekeep
type HousekeepingResult struct {
	Sessions           int64
	VerificationTokens int64
}

// Housekeep removes expired session rows and, when opts asks for it,
// expired verification tokens.
func (m *Manager) Housekeep(ctx context.Context, now time.Time, opts HousekeepingOptions) (HousekeepingResult, error) {
	res := HousekeepingResult{}

	n, err := m.sessions.PurgeExpired(ctx, now)
	if err != nil {
		return res, err
	}
	res.Sessions = n

	if !opts.VerificationTokens {
		return res, nil
	}

	n, err = m.verificationTokens.DeleteExpired(ctx, now)
	if err != nil {
		return res, err
	}
	res.VerificationTokens = n

	return res, nil
}
