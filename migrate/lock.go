/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/acronis/go-migratekit"
)

// ErrRunLockAlreadyAcquired is returned when another process holds the run
// lock, i.e. a concurrent migration run is in progress.
var ErrRunLockAlreadyAcquired = errors.New("migration run lock is already acquired")

type runLockConfig struct {
	key string
	ttl time.Duration
}

// runLock is a token-based advisory lock stored in a database table.
// It protects a migration run against concurrent runs from other processes,
// e.g. several instances of a service migrating the same database on startup.
type runLock struct {
	key     string
	token   string
	queries lockQueries
}

func newRunLock(dialect migratekit.Dialect, tableName, key string) (*runLock, error) {
	if key == "" {
		return nil, fmt.Errorf("run lock key cannot be empty")
	}
	if len(key) > 40 {
		return nil, fmt.Errorf("run lock key cannot be longer than 40 symbols")
	}
	q, err := newLockQueries(dialect, tableName)
	if err != nil {
		return nil, err
	}
	return &runLock{key: key, queries: q}, nil
}

// doExclusively acquires the lock with the passed TTL, calls fn and releases
// the lock when fn returns. The TTL must comfortably exceed the expected run
// duration: an expired lock can be taken over by another process.
func (l *runLock) doExclusively(
	ctx context.Context, db *sql.DB, ttl time.Duration, fn func(ctx context.Context) error,
) error {
	if err := migratekit.DoInTx(ctx, db, func(tx *sql.Tx) error {
		return l.acquire(ctx, tx, ttl)
	}); err != nil {
		return err
	}

	defer func() {
		// Release must work even if ctx got canceled during the run.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = migratekit.DoInTx(releaseCtx, db, func(tx *sql.Tx) error {
			return l.release(releaseCtx, tx)
		})
	}()

	return fn(ctx)
}

func (l *runLock) acquire(ctx context.Context, tx *sql.Tx, ttl time.Duration) error {
	if _, err := tx.ExecContext(ctx, l.queries.createTable); err != nil {
		return fmt.Errorf("create run lock table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, l.queries.initLock, l.key); err != nil {
		return fmt.Errorf("init run lock %q: %w", l.key, err)
	}

	token := uuid.NewString()
	result, err := tx.ExecContext(ctx, l.queries.acquireLock, l.queries.intervalMaker(ttl), token, l.key)
	if err != nil {
		return fmt.Errorf("acquire run lock %q: %w", l.key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunLockAlreadyAcquired
	}
	l.token = token
	return nil
}

func (l *runLock) release(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, l.queries.releaseLock, l.key, l.token); err != nil {
		return fmt.Errorf("release run lock %q: %w", l.key, err)
	}
	return nil
}

type lockQueries struct {
	createTable   string
	initLock      string
	acquireLock   string
	releaseLock   string
	intervalMaker func(ttl time.Duration) string
}

func newLockQueries(dialect migratekit.Dialect, tableName string) (lockQueries, error) {
	switch dialect {
	case migratekit.DialectPostgres, migratekit.DialectPgx:
		return lockQueries{
			createTable: fmt.Sprintf(
				`CREATE TABLE IF NOT EXISTS "%s" (lock_key varchar(40) PRIMARY KEY, token uuid, expire_at timestamp)`,
				tableName),
			initLock: fmt.Sprintf(
				`INSERT INTO "%s" (lock_key) VALUES ($1) ON CONFLICT (lock_key) DO NOTHING`, tableName),
			acquireLock: fmt.Sprintf(
				`UPDATE "%s" SET expire_at = NOW() + $1::interval, token = $2`+
					` WHERE lock_key = $3 AND (expire_at IS NULL OR expire_at < NOW())`, tableName),
			releaseLock: fmt.Sprintf(
				`UPDATE "%s" SET expire_at = NULL WHERE lock_key = $1 AND token = $2`, tableName),
			intervalMaker: func(ttl time.Duration) string {
				return strconv.FormatInt(ttl.Microseconds(), 10) + " microseconds"
			},
		}, nil
	case migratekit.DialectMySQL:
		return lockQueries{
			createTable: fmt.Sprintf(
				"CREATE TABLE IF NOT EXISTS `%s` (lock_key VARCHAR(40) PRIMARY KEY, token VARCHAR(36), expire_at BIGINT)",
				tableName),
			initLock: fmt.Sprintf("INSERT IGNORE `%s` (lock_key) VALUES (?)", tableName),
			acquireLock: fmt.Sprintf(
				"UPDATE `%s` SET expire_at = UNIX_TIMESTAMP(DATE_ADD(CURTIME(4), INTERVAL ? MICROSECOND))*10000, token = ?"+
					" WHERE lock_key = ? AND (expire_at IS NULL OR expire_at < UNIX_TIMESTAMP(CURTIME(4))*10000)", tableName),
			releaseLock: fmt.Sprintf(
				"UPDATE `%s` SET expire_at = NULL WHERE lock_key = ? AND token = ?", tableName),
			intervalMaker: func(ttl time.Duration) string {
				return strconv.FormatInt(ttl.Microseconds(), 10)
			},
		}, nil
	default:
		return lockQueries{}, fmt.Errorf("run lock is not supported for dialect %q", dialect)
	}
}
