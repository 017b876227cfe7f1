/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package source resolves migration scripts stored on a filesystem as
// version-numbered folders of SQL files.
//
// A FolderSource lists the immediate subfolders of a root directory and loads
// the script files found in them. When a target version is configured, folder
// names are parsed as versions, folders above the target are skipped, and two
// folders resolving to the same version abort the resolution. Without a target
// version every subfolder is taken as-is, in filesystem enumeration order.
//
// Basic usage:
//
//	src := source.NewFolderSource("migrations",
//	    source.WithTargetVersion("2.1"),
//	    source.WithEncoding("windows-1252"),
//	)
//	scripts, err := src.Resolve()
//	if err != nil {
//	    return err
//	}
//
// Each resolved script is identified by its folder-qualified name, e.g.
// "2.1/001_add_index.sql", so files with equal names in different folders
// never collide.
package source
