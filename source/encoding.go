/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package source

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is the encoding used to decode script files when no other
// encoding is configured.
const DefaultEncoding = "utf-8"

// lookupEncoding resolves an IANA encoding name (e.g. "utf-8", "utf-16le",
// "windows-1252") to a decoder. An empty name selects the default UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		// The name is registered with IANA but has no decoder implementation.
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}
