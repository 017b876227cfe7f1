/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package source

import (
	"fmt"
	"io"
	"path"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/acronis/go-migratekit"
)

// DefaultFilePattern is the glob pattern script files must match to be loaded.
const DefaultFilePattern = "*.sql"

// NameFilter is a predicate over a name string. It is applied to folder names
// in bounded resolutions and to folder-qualified file names in all resolutions.
type NameFilter func(name string) bool

// FolderSource resolves migration scripts from version-numbered subfolders of
// a root directory. A FolderSource is stateless between Resolve calls; it is
// safe to call Resolve repeatedly or from multiple goroutines.
type FolderSource struct {
	fs            vfs.FileSystem
	dir           string
	targetVersion string
	encodingName  string
	filePattern   string
	filter        NameFilter
}

// Option is a functional option for FolderSource configuration.
type Option func(*FolderSource)

// WithTargetVersion bounds the resolution to folders whose version is less
// than or equal to the passed version. The value must parse with
// migratekit.ParseVersion; an empty value leaves the resolution unbounded.
func WithTargetVersion(version string) Option {
	return func(s *FolderSource) {
		s.targetVersion = version
	}
}

// WithNameFilter sets a predicate that folder names and folder-qualified file
// names must satisfy to take part in the resolution.
func WithNameFilter(filter NameFilter) Option {
	return func(s *FolderSource) {
		s.filter = filter
	}
}

// WithEncoding sets the IANA name of the text encoding used to decode script
// files. The default is UTF-8.
func WithEncoding(name string) Option {
	return func(s *FolderSource) {
		s.encodingName = name
	}
}

// WithFilePattern sets the glob pattern script file names must match.
// The default is "*.sql".
func WithFilePattern(pattern string) Option {
	return func(s *FolderSource) {
		s.filePattern = pattern
	}
}

// WithFileSystem sets the filesystem the source reads from.
// The default is the OS filesystem.
func WithFileSystem(fs vfs.FileSystem) Option {
	return func(s *FolderSource) {
		s.fs = fs
	}
}

// NewFolderSource creates a new FolderSource for the passed root directory.
func NewFolderSource(dir string, options ...Option) *FolderSource {
	s := &FolderSource{
		fs:          osfs.New(),
		dir:         dir,
		filePattern: DefaultFilePattern,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// NewFolderSourceFromConfig creates a new FolderSource from a parsed Config.
// Options may be passed to set the parameters a Config cannot carry, such as
// the name filter or a non-default filesystem.
func NewFolderSourceFromConfig(cfg *Config, options ...Option) *FolderSource {
	opts := []Option{
		WithTargetVersion(cfg.TargetVersion),
		WithEncoding(cfg.Encoding),
	}
	if cfg.FilePattern != "" {
		opts = append(opts, WithFilePattern(cfg.FilePattern))
	}
	return NewFolderSource(cfg.Dir, append(opts, options...)...)
}

// Resolve lists the version folders under the source's root directory and
// loads the scripts they contain. It never returns partial results: the first
// malformed version, ambiguous folder pair or I/O failure aborts the call.
func (s *FolderSource) Resolve() ([]Script, error) {
	enc, err := lookupEncoding(s.encodingName)
	if err != nil {
		return nil, err
	}

	folders, err := s.listSubfolders()
	if err != nil {
		return nil, fmt.Errorf("list subfolders of %q: %w", s.dir, err)
	}

	if s.targetVersion == "" {
		return s.collectAll(folders, enc)
	}
	return s.collectBounded(folders, enc)
}

// collectAll loads scripts from every folder, in enumeration order.
// Folder names are not required to parse as versions here.
func (s *FolderSource) collectAll(folders []string, enc encoding.Encoding) ([]Script, error) {
	scripts := []Script{}
	for _, folder := range folders {
		loaded, err := s.loadFolder(folder, enc)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, loaded...)
	}
	return scripts, nil
}

// collectBounded loads scripts from folders whose version is less than or
// equal to the target version.
func (s *FolderSource) collectBounded(folders []string, enc encoding.Encoding) ([]Script, error) {
	if s.filter != nil {
		filtered := make([]string, 0, len(folders))
		for _, folder := range folders {
			if s.filter(folder) {
				filtered = append(filtered, folder)
			}
		}
		folders = filtered
	}
	// An empty post-filter folder set is an empty result, checked before the
	// target version is even parsed.
	if len(folders) == 0 {
		return []Script{}, nil
	}

	target, err := migratekit.ParseVersion(s.targetVersion)
	if err != nil {
		return nil, fmt.Errorf("parse target version: %w", err)
	}

	scripts := []Script{}
	accepted := make(map[migratekit.Version]string, len(folders))
	for _, folder := range folders {
		ver, err := migratekit.ParseVersion(folder)
		if err != nil {
			return nil, fmt.Errorf("parse version of folder %q: %w", folder, err)
		}
		if ver.Compare(target) > 0 {
			continue
		}
		if prev, ok := accepted[ver]; ok {
			return nil, &AmbiguousVersionError{Version: ver, Folder: folder, ConflictsWith: prev}
		}
		accepted[ver] = folder

		loaded, err := s.loadFolder(folder, enc)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, loaded...)
	}
	return scripts, nil
}

func (s *FolderSource) listSubfolders() ([]string, error) {
	entries, err := vfs.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// loadFolder loads the scripts of a single folder, in enumeration order.
func (s *FolderSource) loadFolder(folder string, enc encoding.Encoding) ([]Script, error) {
	folderPath := path.Join(s.dir, folder)
	entries, err := vfs.ReadDir(s.fs, folderPath)
	if err != nil {
		return nil, fmt.Errorf("list scripts in %q: %w", folderPath, err)
	}

	var scripts []Script
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched, err := path.Match(s.filePattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("match file pattern %q: %w", s.filePattern, err)
		}
		if !matched {
			continue
		}
		name := folder + "/" + entry.Name()
		if s.filter != nil && !s.filter(name) {
			continue
		}
		contents, err := s.readScript(path.Join(folderPath, entry.Name()), enc)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, Script{Name: name, Contents: contents})
	}
	return scripts, nil
}

// readScript reads and decodes a single script file. The file handle does not
// outlive the read. A BOM in the file overrides the configured encoding and
// is not part of the returned text.
func (s *FolderSource) readScript(filePath string, enc encoding.Encoding) (string, error) {
	f, err := s.fs.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open script %q: %w", filePath, err)
	}
	defer f.Close()

	decoded, err := io.ReadAll(transform.NewReader(f, unicode.BOMOverride(enc.NewDecoder())))
	if err != nil {
		return "", fmt.Errorf("read script %q: %w", filePath, err)
	}
	return string(decoded), nil
}
