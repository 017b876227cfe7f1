/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/acronis/go-migratekit"
)

// DefaultTableName is the default name for the journal table that records
// applied migrations.
const DefaultTableName = "schema_versions"

// getCreateTableSQL returns the dialect-specific DDL for creating the journal table.
func getCreateTableSQL(dialect migratekit.Dialect, tableName string) (string, error) {
	switch dialect {
	case migratekit.DialectMySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) NOT NULL PRIMARY KEY,
			applied_at DATETIME NOT NULL
		)`, tableName), nil

	case migratekit.DialectPostgres, migratekit.DialectPgx:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) NOT NULL PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)`, tableName), nil

	case migratekit.DialectSQLite:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) NOT NULL PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`, tableName), nil

	case migratekit.DialectMSSQL:
		// MSSQL doesn't support CREATE TABLE IF NOT EXISTS, use conditional check.
		return fmt.Sprintf(`IF NOT EXISTS (SELECT * FROM sys.tables WHERE name = '%s')
			CREATE TABLE %s (
				id VARCHAR(255) NOT NULL PRIMARY KEY,
				applied_at DATETIME2 NOT NULL
			)`, tableName, tableName), nil

	default:
		return "", fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

// ensureTable creates the journal table if it doesn't exist.
func ensureTable(ctx context.Context, db *sql.DB, dialect migratekit.Dialect, tableName string) error {
	createSQL, err := getCreateTableSQL(dialect, tableName)
	if err != nil {
		return fmt.Errorf("get create table SQL: %w", err)
	}

	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create journal table: %w", err)
	}

	return nil
}
