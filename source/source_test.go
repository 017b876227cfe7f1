/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package source_test

import (
	"errors"
	"path"
	"strings"
	"testing"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-migratekit"
	"github.com/acronis/go-migratekit/source"
)

const testRoot = "/migrations"

func writeScript(t *testing.T, fsys vfs.FileSystem, relPath string, contents []byte) {
	t.Helper()
	fullPath := path.Join(testRoot, relPath)
	require.NoError(t, fsys.MkdirAll(path.Dir(fullPath), 0o755))
	require.NoError(t, vfs.WriteFile(fsys, fullPath, contents, 0o644))
}

func scriptNames(scripts []source.Script) []string {
	names := make([]string, 0, len(scripts))
	for _, s := range scripts {
		names = append(names, s.Name)
	}
	return names
}

func TestFolderSource_Unbounded(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001_init.sql", []byte("CREATE TABLE users (id INTEGER);"))
	writeScript(t, fsys, "2.0/001_posts.sql", []byte("CREATE TABLE posts (id INTEGER);"))
	// Without a target version, folder names need not parse as versions.
	writeScript(t, fsys, "extras/seed.sql", []byte("INSERT INTO users VALUES (1);"))

	src := source.NewFolderSource(testRoot, source.WithFileSystem(fsys))
	scripts, err := src.Resolve()
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"1.0/001_init.sql", "2.0/001_posts.sql", "extras/seed.sql"},
		scriptNames(scripts))
}

func TestFolderSource_TargetVersionBound(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001_init.sql", []byte("-- v1.0"))
	writeScript(t, fsys, "1.5/001_alter.sql", []byte("-- v1.5"))
	writeScript(t, fsys, "3.0/001_future.sql", []byte("-- v3.0"))

	src := source.NewFolderSource(testRoot,
		source.WithFileSystem(fsys),
		source.WithTargetVersion("2.0"),
	)
	scripts, err := src.Resolve()
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"1.0/001_init.sql", "1.5/001_alter.sql"},
		scriptNames(scripts))
}

func TestFolderSource_TargetVersionInclusive(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "2.0/001.sql", []byte("-- exactly the target"))
	writeScript(t, fsys, "2.0.0.1/001.sql", []byte("-- just above the target"))

	src := source.NewFolderSource(testRoot,
		source.WithFileSystem(fsys),
		source.WithTargetVersion("2.0"),
	)
	scripts, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"2.0/001.sql"}, scriptNames(scripts))
}

func TestFolderSource_AmbiguousVersions(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001.sql", []byte("-- a"))
	writeScript(t, fsys, "01.0/001.sql", []byte("-- b"))

	src := source.NewFolderSource(testRoot,
		source.WithFileSystem(fsys),
		source.WithTargetVersion("2.0"),
	)
	_, err := src.Resolve()
	require.Error(t, err)
	var ambErr *source.AmbiguousVersionError
	require.True(t, errors.As(err, &ambErr))
	assert.Equal(t, migratekit.Version{Major: 1}, ambErr.Version)
	assert.ElementsMatch(t, []string{"1.0", "01.0"}, []string{ambErr.Folder, ambErr.ConflictsWith})
}

func TestFolderSource_AmbiguityIgnoredAboveTarget(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "3.0/001.sql", []byte("-- a"))
	writeScript(t, fsys, "03.0/001.sql", []byte("-- b"))
	writeScript(t, fsys, "1.0/001.sql", []byte("-- c"))

	// Folders above the target are never accepted, so they cannot be ambiguous.
	src := source.NewFolderSource(testRoot,
		source.WithFileSystem(fsys),
		source.WithTargetVersion("2.0"),
	)
	scripts, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0/001.sql"}, scriptNames(scripts))
}

func TestFolderSource_AmbiguityExcludedByFolderFilter(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001.sql", []byte("-- a"))
	writeScript(t, fsys, "01.0/001.sql", []byte("-- b"))

	src := source.NewFolderSource(testRoot,
		source.WithFileSystem(fsys),
		source.WithTargetVersion("2.0"),
		source.WithNameFilter(func(name string) bool {
			return !strings.HasPrefix(name, "01")
		}),
	)
	scripts, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0/001.sql"}, scriptNames(scripts))
}

func TestFolderSource_EmptyAfterFilterBeforeTargetParse(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001.sql", []byte("-- a"))

	// The empty post-filter folder set short-circuits the resolution before
	// the (malformed) target version would be parsed.
	src := source.NewFolderSource(testRoot,
		source.WithFileSystem(fsys),
		source.WithTargetVersion("bogus"),
		source.WithNameFilter(func(string) bool { return false }),
	)
	scripts, err := src.Resolve()
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestFolderSource_MalformedTargetVersion(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001.sql", []byte("-- a"))

	src := source.NewFolderSource(testRoot,
		source.WithFileSystem(fsys),
		source.WithTargetVersion("not-a-version"),
	)
	_, err := src.Resolve()
	require.Error(t, err)
	var malformedErr *migratekit.MalformedVersionError
	require.True(t, errors.As(err, &malformedErr))
	assert.Equal(t, "not-a-version", malformedErr.Input)
}

func TestFolderSource_UnparseableFolderUnderTarget(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001.sql", []byte("-- a"))
	writeScript(t, fsys, "extras/seed.sql", []byte("-- b"))

	src := source.NewFolderSource(testRoot,
		source.WithFileSystem(fsys),
		source.WithTargetVersion("2.0"),
	)
	_, err := src.Resolve()
	require.Error(t, err)
	var malformedErr *migratekit.MalformedVersionError
	require.True(t, errors.As(err, &malformedErr))
	assert.Equal(t, "extras", malformedErr.Input)
}

func TestFolderSource_CompositeNames(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/script1.sql", []byte("-- one"))
	writeScript(t, fsys, "2.0/script1.sql", []byte("-- two"))

	src := source.NewFolderSource(testRoot, source.WithFileSystem(fsys))
	scripts, err := src.Resolve()
	require.NoError(t, err)
	require.Len(t, scripts, 2)

	byName := make(map[string]string, len(scripts))
	for _, s := range scripts {
		byName[s.Name] = s.Contents
	}
	assert.Equal(t, "-- one", byName["1.0/script1.sql"])
	assert.Equal(t, "-- two", byName["2.0/script1.sql"])
}

func TestFolderSource_FileFilterOnCompositeNames(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001_keep.sql", []byte("-- keep"))
	writeScript(t, fsys, "1.0/002_skip.sql", []byte("-- skip"))

	src := source.NewFolderSource(testRoot,
		source.WithFileSystem(fsys),
		source.WithNameFilter(func(name string) bool {
			return !strings.Contains(name, "skip")
		}),
	)
	scripts, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0/001_keep.sql"}, scriptNames(scripts))
}

func TestFolderSource_FilePattern(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001_schema.sql", []byte("-- sql"))
	writeScript(t, fsys, "1.0/README.md", []byte("not a script"))
	writeScript(t, fsys, "1.0/002_schema.ddl", []byte("-- ddl"))

	t.Run("default pattern", func(t *testing.T) {
		src := source.NewFolderSource(testRoot, source.WithFileSystem(fsys))
		scripts, err := src.Resolve()
		require.NoError(t, err)
		assert.Equal(t, []string{"1.0/001_schema.sql"}, scriptNames(scripts))
	})

	t.Run("custom pattern", func(t *testing.T) {
		src := source.NewFolderSource(testRoot,
			source.WithFileSystem(fsys),
			source.WithFilePattern("*.ddl"),
		)
		scripts, err := src.Resolve()
		require.NoError(t, err)
		assert.Equal(t, []string{"1.0/002_schema.ddl"}, scriptNames(scripts))
	})
}

func TestFolderSource_NestedDirectoriesSkipped(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001.sql", []byte("-- a"))
	// A directory whose name matches the file pattern is not a script.
	require.NoError(t, fsys.MkdirAll(path.Join(testRoot, "1.0/nested.sql"), 0o755))

	src := source.NewFolderSource(testRoot, source.WithFileSystem(fsys))
	scripts, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0/001.sql"}, scriptNames(scripts))
}

func TestFolderSource_Encoding(t *testing.T) {
	t.Run("windows-1252", func(t *testing.T) {
		fsys := memoryfs.New()
		// "café" with 0xE9 for "é" in Windows-1252.
		writeScript(t, fsys, "1.0/001.sql", []byte{'c', 'a', 'f', 0xE9})

		src := source.NewFolderSource(testRoot,
			source.WithFileSystem(fsys),
			source.WithEncoding("windows-1252"),
		)
		scripts, err := src.Resolve()
		require.NoError(t, err)
		require.Len(t, scripts, 1)
		assert.Equal(t, "café", scripts[0].Contents)
	})

	t.Run("utf-8 BOM is stripped", func(t *testing.T) {
		fsys := memoryfs.New()
		writeScript(t, fsys, "1.0/001.sql", []byte("\xEF\xBB\xBFSELECT 1;"))

		src := source.NewFolderSource(testRoot, source.WithFileSystem(fsys))
		scripts, err := src.Resolve()
		require.NoError(t, err)
		require.Len(t, scripts, 1)
		assert.Equal(t, "SELECT 1;", scripts[0].Contents)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		fsys := memoryfs.New()
		writeScript(t, fsys, "1.0/001.sql", []byte("SELECT 1;"))

		src := source.NewFolderSource(testRoot,
			source.WithFileSystem(fsys),
			source.WithEncoding("no-such-encoding"),
		)
		_, err := src.Resolve()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no-such-encoding")
	})
}

func TestFolderSource_MissingRootDir(t *testing.T) {
	src := source.NewFolderSource("/does/not/exist", source.WithFileSystem(memoryfs.New()))
	_, err := src.Resolve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list subfolders")
}

// failingOpenFS fails opening any file whose name has the configured suffix.
type failingOpenFS struct {
	vfs.FileSystem
	failSuffix string
}

func (f *failingOpenFS) Open(name string) (vfs.File, error) {
	if strings.HasSuffix(name, f.failSuffix) {
		return nil, errors.New("injected open failure")
	}
	return f.FileSystem.Open(name)
}

func TestFolderSource_ReadFailureAbortsResolution(t *testing.T) {
	fsys := memoryfs.New()
	writeScript(t, fsys, "1.0/001_good.sql", []byte("-- good"))
	writeScript(t, fsys, "1.0/002_boom.sql", []byte("-- bad"))

	src := source.NewFolderSource(testRoot,
		source.WithFileSystem(&failingOpenFS{FileSystem: fsys, failSuffix: "002_boom.sql"}),
	)
	scripts, err := src.Resolve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected open failure")
	// No partial results on the error path.
	assert.Nil(t, scripts)
}
