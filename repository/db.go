package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns a bun.DB for driver. sqlite goes through sqliteshim, postgres
// through the pgx stdlib driver.
func Open(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case DriverSQLite, "sqlite3", "":
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, err
		}
		// in-memory databases are per connection
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres, "pgx", "postgresql":
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
