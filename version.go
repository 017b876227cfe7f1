/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package migratekit

import (
	"fmt"
	"strconv"
	"strings"
)

// versionDelims is the set of characters that may separate the numeric
// components of a version string. Any non-empty run of them counts as
// a single separator.
const versionDelims = "^_-.,~ "

// Version is a migration version made of up to four numeric components.
// Components that are absent in the parsed string are zero.
// Versions are ordered lexicographically by (Major, Minor, Build, Revision).
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// MalformedVersionError is returned when a string does not start with
// a recognizable version prefix, or encodes more than four components.
type MalformedVersionError struct {
	Input string
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("%q is not a valid version: expected 1 to 4 delimited numeric components", e.Input)
}

// ParseVersion parses a version prefix from s.
// It fails with *MalformedVersionError if s does not start with a digit,
// if a fifth delimited numeric component follows the first four,
// or if a component does not fit into an int.
func ParseVersion(s string) (Version, error) {
	v, ok := TryParseVersion(s)
	if !ok {
		return Version{}, &MalformedVersionError{Input: s}
	}
	return v, nil
}

// TryParseVersion is the tolerant form of ParseVersion.
// It reports false instead of returning an error for unparseable input.
//
// Matching is anchored to the start of s: 1 to 4 groups of decimal digits,
// each pair of groups separated by a run of delimiter characters
// ("^", "_", "-", ".", ",", "~" or space). Leading zeros are insignificant.
// Trailing content that does not continue the component list is ignored,
// but a fifth component rejects the whole string.
func TryParseVersion(s string) (Version, bool) {
	var parts [4]int
	i, n := 0, 0
	for {
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == start {
			// No leading digit group at all.
			return Version{}, false
		}
		if n == len(parts) {
			// A fifth delimited group is an error, not extra noise.
			return Version{}, false
		}
		val, err := strconv.Atoi(s[start:i])
		if err != nil {
			return Version{}, false
		}
		parts[n] = val
		n++

		j := i
		for j < len(s) && strings.IndexByte(versionDelims, s[j]) >= 0 {
			j++
		}
		if j == i || j == len(s) || s[j] < '0' || s[j] > '9' {
			// No delimiter run followed by another digit group:
			// the version prefix ends here, the rest is ignored.
			break
		}
		i = j
	}
	return Version{Major: parts[0], Minor: parts[1], Build: parts[2], Revision: parts[3]}, true
}

// Compare returns -1 if v is less than other, 0 if equal, and 1 if greater.
func (v Version) Compare(other Version) int {
	pairs := [4][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Build, other.Build},
		{v.Revision, other.Revision},
	}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}

// String returns the full dotted form, e.g. "1.2.0.0".
// Implements fmt.Stringer interface.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}
