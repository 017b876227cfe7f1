/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package migrate applies migration scripts to a SQL database and tracks which
// of them have already been applied.
//
// Migrations are applied in the order they are passed, each within its own
// transaction unless the migration opts out via the TxDisabler interface.
// Applied migration IDs are recorded in a journal table created on demand.
//
// Basic usage with a folder source:
//
//	src := source.NewFolderSource("migrations", source.WithTargetVersion("2.0"))
//	scripts, err := src.Resolve()
//	if err != nil {
//	    return err
//	}
//
//	mgr, err := migrate.NewMigrationsManager(db, migratekit.DialectPostgres, logger)
//	if err != nil {
//	    return err
//	}
//	applied, err := mgr.Run(ctx, migrate.FromScripts(scripts))
package migrate
