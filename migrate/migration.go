/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"database/sql"
	"strings"

	"github.com/acronis/go-migratekit/source"
)

// Migration is the interface for all database migrations.
type Migration interface {
	// ID returns a unique identifier for the migration, e.g. the
	// folder-qualified script name "1.2/001_add_index.sql".
	ID() string

	// Statements returns SQL statements to execute when applying the migration.
	// Each statement is executed in order within a transaction (unless disabled).
	Statements() []string

	// Fn returns a function to execute when applying the migration.
	// Called after the Statements (if any). May be nil.
	Fn() func(tx *sql.Tx) error
}

// TxDisabler is an optional interface that migrations can implement to disable
// transactional execution. Some database operations (like CREATE INDEX
// CONCURRENTLY in PostgreSQL) cannot run within a transaction.
type TxDisabler interface {
	DisableTx() bool
}

// BaseMigration is a basic implementation of Migration that can be embedded in
// custom migrations to reduce boilerplate.
type BaseMigration struct {
	id         string
	statements []string
	fn         func(tx *sql.Tx) error
}

// NewMigration creates a new BaseMigration with the given parameters.
func NewMigration(id string, statements []string, fn func(tx *sql.Tx) error) *BaseMigration {
	return &BaseMigration{id: id, statements: statements, fn: fn}
}

// ID returns the migration identifier.
func (m *BaseMigration) ID() string {
	return m.id
}

// Statements returns the SQL statements.
func (m *BaseMigration) Statements() []string {
	return m.statements
}

// Fn returns the migration function.
func (m *BaseMigration) Fn() func(tx *sql.Tx) error {
	return m.fn
}

// FromScripts adapts resolved scripts into migrations, preserving their order.
// The script name becomes the migration ID and the script contents are split
// into individual SQL statements.
func FromScripts(scripts []source.Script) []Migration {
	migrations := make([]Migration, 0, len(scripts))
	for _, s := range scripts {
		migrations = append(migrations, NewMigration(s.Name, splitStatements(s.Contents), nil))
	}
	return migrations
}

// splitStatements splits script contents into individual statements.
// Statements are separated by a semicolon at the end of a line; full-line SQL
// comments are skipped. Semicolons inside string literals that span a line end
// are not handled.
func splitStatements(contents string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(contents, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}

		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSpace(current.String()); stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" && stmt != ";" {
		statements = append(statements, stmt)
	}

	return statements
}
