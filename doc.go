/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package migratekit provides building blocks for running SQL database migrations
// that are stored on disk as version-numbered folders of script files.
//
// The root package contains the shared plumbing: the migration Version type and
// its parser, database dialects, connection configuration and opening.
// The source subpackage resolves version folders into an ordered list of scripts,
// and the migrate subpackage applies resolved scripts to a database while
// tracking which of them have already been run.
package migratekit
