/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package source

import (
	"fmt"

	"github.com/acronis/go-migratekit"
)

// AmbiguousVersionError is returned when two folders accepted by a bounded
// resolution parse to the same version. Applying both would make the
// migration order undefined, so the whole resolution is aborted.
type AmbiguousVersionError struct {
	Version       migratekit.Version
	Folder        string
	ConflictsWith string
}

func (e *AmbiguousVersionError) Error() string {
	return fmt.Sprintf("ambiguous version %s: folder %q parses to the same version as folder %q",
		e.Version, e.Folder, e.ConflictsWith)
}
