/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package source

// Script is a single migration script resolved from a source.
type Script struct {
	// Name identifies the script within its source and is composed as
	// "<folderName>/<fileName>".
	Name string
	// Contents is the decoded text of the script file.
	Contents string
}
