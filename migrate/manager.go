/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-migratekit"
)

// Manager handles migration execution and journaling.
type Manager struct {
	db        *sql.DB
	dialect   migratekit.Dialect
	logger    log.FieldLogger
	tableName string
	runLock   *runLockConfig
}

// ManagerOption is a functional option for Manager configuration.
// Use NewMigrationsManager to create a new Manager instance.
type ManagerOption func(*Manager)

// WithTableName sets a custom journal table name.
func WithTableName(name string) ManagerOption {
	return func(m *Manager) {
		m.tableName = name
	}
}

// WithRunLock makes Run acquire a database-backed advisory lock for the
// duration of the run, so that concurrent deployments don't apply the same
// migrations twice. Supported for Postgres, pgx and MySQL dialects.
func WithRunLock(key string, ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.runLock = &runLockConfig{key: key, ttl: ttl}
	}
}

// NewMigrationsManager creates a new migration manager.
func NewMigrationsManager(
	db *sql.DB, dialect migratekit.Dialect, logger log.FieldLogger, opts ...ManagerOption,
) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	m := &Manager{
		db:        db,
		dialect:   dialect,
		logger:    logger,
		tableName: DefaultTableName,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Run applies all migrations that are not journaled yet, in the order they are
// passed, and returns the number of migrations applied. Passing migrations in
// the order their source resolved them is the caller's responsibility.
func (m *Manager) Run(ctx context.Context, migrations []Migration) (int, error) {
	if m.runLock == nil {
		return m.run(ctx, migrations)
	}

	lock, err := newRunLock(m.dialect, m.tableName+"_lock", m.runLock.key)
	if err != nil {
		return 0, err
	}

	count := 0
	err = lock.doExclusively(ctx, m.db, m.runLock.ttl, func(ctx context.Context) error {
		var runErr error
		count, runErr = m.run(ctx, migrations)
		return runErr
	})
	return count, err
}

func (m *Manager) run(ctx context.Context, migrations []Migration) (int, error) {
	if err := ensureTable(ctx, m.db, m.dialect, m.tableName); err != nil {
		return 0, fmt.Errorf("ensure journal table: %w", err)
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("get applied migrations: %w", err)
	}

	var toApply []Migration
	for _, mig := range migrations {
		if _, ok := applied[mig.ID()]; !ok {
			toApply = append(toApply, mig)
		}
	}

	m.logger.Info(fmt.Sprintf("Applying %d migration(s)", len(toApply)))

	count := 0
	for _, mig := range toApply {
		if err := m.executeMigration(ctx, mig); err != nil {
			return count, fmt.Errorf("execute migration %s: %w", mig.ID(), err)
		}
		count++
		m.logger.Info(fmt.Sprintf("Applied migration: %s", mig.ID()))
	}

	return count, nil
}

// getAppliedMigrations returns the set of migration IDs recorded in the journal.
func (m *Manager) getAppliedMigrations(ctx context.Context) (map[string]struct{}, error) {
	query := fmt.Sprintf("SELECT id FROM %s", m.tableName)
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		applied[id] = struct{}{}
	}

	return applied, rows.Err()
}

// executeMigration executes a single migration and journals it.
func (m *Manager) executeMigration(ctx context.Context, mig Migration) error {
	disableTx := false
	if txDisabler, ok := mig.(TxDisabler); ok {
		disableTx = txDisabler.DisableTx()
	}

	if disableTx {
		return m.executeWithoutTx(ctx, mig)
	}

	return migratekit.DoInTx(ctx, m.db, func(tx *sql.Tx) error {
		if err := m.executeMigrationSteps(ctx, tx, mig); err != nil {
			return err
		}
		if err := m.recordMigration(ctx, tx, mig.ID()); err != nil {
			return fmt.Errorf("record migration: %w", err)
		}
		return nil
	})
}

// executeWithoutTx executes a migration without a transaction.
// The journal record is written after the last statement succeeds, so a
// failure mid-migration leaves the migration unjournaled and it will be
// retried on the next run.
func (m *Manager) executeWithoutTx(ctx context.Context, mig Migration) error {
	for i, stmt := range mig.Statements() {
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d: %w", i+1, err)
		}
	}

	// Functions are not supported in non-tx mode.

	if err := m.recordMigration(ctx, m.db, mig.ID()); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return nil
}

// executeMigrationSteps executes the SQL and function steps of a migration (within tx).
func (m *Manager) executeMigrationSteps(ctx context.Context, tx *sql.Tx, mig Migration) error {
	for i, stmt := range mig.Statements() {
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d: %w", i+1, err)
		}
	}

	if fn := mig.Fn(); fn != nil {
		if err := fn(tx); err != nil {
			return fmt.Errorf("execute function: %w", err)
		}
	}

	return nil
}

// sqlExecutor is the common surface of *sql.DB and *sql.Tx the journal needs.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// recordMigration records a migration as applied.
func (m *Manager) recordMigration(ctx context.Context, executor sqlExecutor, id string) error {
	query := fmt.Sprintf("INSERT INTO %s (id, applied_at) VALUES (?, ?)", m.tableName)
	if m.dialect == migratekit.DialectPostgres || m.dialect == migratekit.DialectPgx {
		query = fmt.Sprintf("INSERT INTO %s (id, applied_at) VALUES ($1, $2)", m.tableName)
	}
	if _, err := executor.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert journal record: %w", err)
	}
	return nil
}
