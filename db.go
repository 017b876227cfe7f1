/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package migratekit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Dialect defines the SQL database dialect.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite3"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectPgx      Dialect = "pgx"
	DialectMSSQL    Dialect = "mssql"
)

// Default values for database connection pool parameters.
const (
	DefaultMaxOpenConns    = 16
	DefaultMaxIdleConns    = 8
	DefaultConnMaxLifetime = 10 * time.Minute
)

// pingMaxRetries limits how many times Open re-pings the database
// before giving up.
const pingMaxRetries = 3

// Open opens a database connection for the passed configuration and applies
// the configured pool limits. The corresponding driver must be registered by
// the caller (usually via a blank import). If ping is true, the connection is
// verified with a few exponentially backed off ping attempts.
func Open(cfg *Config, ping bool) (*sql.DB, error) {
	driverName, dsn := cfg.DriverNameAndDSN()
	if driverName == "" {
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database (dialect: %s): %w", cfg.Dialect, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))

	if ping {
		bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), pingMaxRetries)
		if err = backoff.Retry(db.Ping, bo); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database (dialect: %s): %w", cfg.Dialect, err)
		}
	}

	return db, nil
}

// DoInTx begins a transaction, calls the passed function and commits if it
// succeeds. If the function returns an error or panics, the transaction is
// rolled back.
func DoInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
