/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"github.com/acronis/go-appkit/log"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/acronis/go-migratekit"
	"github.com/acronis/go-migratekit/migrate"
	"github.com/acronis/go-migratekit/source"
)

func main() {
	if err := runMigrations(); err != nil {
		stdlog.Fatal(err)
	}
}

func runMigrations() error {
	var driverName string
	flag.StringVar(&driverName, "driver", "", "driver name, supported values: sqlite3, mysql, postgres, pgx, mssql")
	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", "./migrations", "root directory with version folders")
	var targetVersion string
	flag.StringVar(&targetVersion, "target", "", "target version, e.g. 2.1; empty applies everything")
	flag.Parse()

	dialect, err := parseDialectFromDriver(driverName)
	if err != nil {
		return fmt.Errorf("parse dialect: %w", err)
	}

	dbConn, err := sql.Open(driverName, os.Getenv("DB_DSN"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer dbConn.Close()

	logger, loggerClose := log.NewLogger(&log.Config{Output: log.OutputStderr, Level: log.LevelInfo})
	defer loggerClose()

	var sourceOpts []source.Option
	if targetVersion != "" {
		sourceOpts = append(sourceOpts, source.WithTargetVersion(targetVersion))
	}
	src := source.NewFolderSource(migrationsDir, sourceOpts...)
	scripts, err := src.Resolve()
	if err != nil {
		return fmt.Errorf("resolve migration scripts: %w", err)
	}

	migrationManager, err := migrate.NewMigrationsManager(dbConn, dialect, logger)
	if err != nil {
		return err
	}
	count, err := migrationManager.Run(context.Background(), migrate.FromScripts(scripts))
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Applied %d migration(s)", count))
	return nil
}

func parseDialectFromDriver(driverName string) (migratekit.Dialect, error) {
	switch driverName {
	case "sqlite3":
		return migratekit.DialectSQLite, nil
	case "mysql":
		return migratekit.DialectMySQL, nil
	case "postgres":
		return migratekit.DialectPostgres, nil
	case "pgx":
		return migratekit.DialectPgx, nil
	case "mssql":
		return migratekit.DialectMSSQL, nil
	default:
		return "", fmt.Errorf("unknown driver name: %s", driverName)
	}
}
