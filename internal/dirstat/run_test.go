package dirstat

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/largest/internal/topn"
)

// writeTree creates files of the given sizes relative to root.
func writeTree(t *testing.T, root string, files map[string]int) {
	t.Helper()

	for name, size := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o600))
	}
}

func TestValidateRoots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	require.NoError(t, ValidateRoots([]string{dir}, false))
	require.ErrorIs(t, ValidateRoots([]string{file}, false), ErrNotDirectory)

	err := ValidateRoots([]string{dir, filepath.Join(dir, "missing")}, false)
	require.ErrorIs(t, err, ErrNotDirectory)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRun_TopGroups(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]int{
		"a":       10,
		"b":       20,
		"c":       5,
		"sub/d":   20,
		"sub/e/f": 30,
	})

	var log bytes.Buffer

	stats, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 2, Log: &log}, nil)
	require.NoError(t, err)

	assert.Equal(t, []topn.Group{
		{Size: 20, Paths: []string{filepath.Join(root, "b"), filepath.Join(root, "sub", "d")}},
		{Size: 30, Paths: []string{filepath.Join(root, "sub", "e", "f")}},
	}, stats.Groups)
	assert.Equal(t, int64(5), stats.FileCount)
	assert.Equal(t, int64(85), stats.TotalBytes)
	assert.Zero(t, stats.ErrorCount)
	assert.Equal(t, 3, stats.RetainedFiles)
	assert.Equal(t, 2, stats.TopN)
	assert.Empty(t, log.String())
}

func TestRun_MultipleRootsShareTracker(t *testing.T) {
	t.Parallel()

	first, second := t.TempDir(), t.TempDir()
	writeTree(t, first, map[string]int{"small": 1, "big": 100})
	writeTree(t, second, map[string]int{"mid": 50})

	stats, err := Run(context.Background(), Options{Paths: []string{first, second}, TopN: 2}, nil)
	require.NoError(t, err)

	assert.Equal(t, []topn.Group{
		{Size: 50, Paths: []string{filepath.Join(second, "mid")}},
		{Size: 100, Paths: []string{filepath.Join(first, "big")}},
	}, stats.Groups)
	assert.Equal(t, []string{first, second}, stats.Roots)
}

func TestRun_SkipHidden(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]int{
		"visible":         1,
		".hidden":         100,
		".git/objects/aa": 200,
		"dir/.dotfile":    300,
	})

	stats, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 10, SkipHidden: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, []topn.Group{{Size: 1, Paths: []string{filepath.Join(root, "visible")}}}, stats.Groups)
	assert.Equal(t, int64(1), stats.FileCount)

	stats, err = Run(context.Background(), Options{Paths: []string{root}, TopN: 10}, nil)
	require.NoError(t, err)
	assert.Len(t, stats.Groups, 4)
}

func TestRun_HiddenRootIsScanned(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), ".config")
	writeTree(t, root, map[string]int{"settings": 7})

	stats, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 1, SkipHidden: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, []topn.Group{{Size: 7, Paths: []string{filepath.Join(root, "settings")}}}, stats.Groups)
}

func TestRun_SameFilesystem(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]int{"a": 3, "nested/b": 4})

	stats, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 5, SameFilesystem: true}, nil)
	require.NoError(t, err)

	assert.Len(t, stats.Groups, 2)
}

func TestRun_SymlinksAreNotFollowed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := t.TempDir()
	writeTree(t, target, map[string]int{"outside": 42})
	writeTree(t, root, map[string]int{"inside": 1})

	if err := os.Symlink(target, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	stats, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 5}, nil)
	require.NoError(t, err)

	assert.Equal(t, []topn.Group{{Size: 1, Paths: []string{filepath.Join(root, "inside")}}}, stats.Groups)
}

func TestRun_InvalidRootFailsBeforeWalking(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]int{"a": 1})

	var calls int

	_, err := Run(context.Background(), Options{
		Paths:            []string{root, filepath.Join(root, "missing")},
		TopN:             1,
		ProgressInterval: 1,
	}, func(int64, int64) { calls++ })

	require.ErrorIs(t, err, ErrNotDirectory)
	assert.Zero(t, calls)
}

func TestRun_UnreadableDirectoryIsCounted(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]int{"ok": 2, "locked/secret": 9})

	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	var log bytes.Buffer

	stats, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 5, Log: &log}, nil)
	require.NoError(t, err)

	assert.Positive(t, stats.ErrorCount)
	assert.Equal(t, []topn.Group{{Size: 2, Paths: []string{filepath.Join(root, "ok")}}}, stats.Groups)
	assert.Contains(t, log.String(), "locked")
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]int{"a": 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{Paths: []string{root}, TopN: 1}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_DebugLogsSkips(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]int{".hidden": 1})

	var log bytes.Buffer

	_, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 1, SkipHidden: true, Debug: true, Log: &log}, nil)
	require.NoError(t, err)

	assert.True(t, strings.Contains(log.String(), "skipping hidden file"), log.String())
}

func TestCollector_ProgressHook(t *testing.T) {
	t.Parallel()

	var (
		files, total int64
		calls        int
	)

	c := newCollector(1, func(f, b int64) {
		calls++
		files, total = f, b
	}, 1)
	c.lastProgress = c.lastProgress.Add(-DefaultProgressInterval)

	c.add(Entry{Regular: true, Size: 4, Path: "a"})
	c.add(Entry{Regular: false, Path: "fifo"})

	assert.Equal(t, int64(1), c.fileCount)
	assert.Equal(t, 1, c.tracker.Files())
	assert.GreaterOrEqual(t, calls, 1)
	assert.Equal(t, int64(1), files)
	assert.Equal(t, int64(4), total)
}

// failInfo makes metadata reads fail for entries with the given base names.
func failInfo(t *testing.T, names ...string) {
	t.Helper()

	orig := entryInfo

	t.Cleanup(func() { entryInfo = orig })

	entryInfo = func(d fs.DirEntry) (fs.FileInfo, error) {
		for _, name := range names {
			if d.Name() == name {
				return nil, errors.New("metadata unavailable")
			}
		}

		return orig(d)
	}
}

// fakeDevices places the root on device 1 and the named entries on device 2.
func fakeDevices(t *testing.T, foreign ...string) {
	t.Helper()

	origRoot, origEntry := statRootDevice, entryDevice

	t.Cleanup(func() { statRootDevice, entryDevice = origRoot, origEntry })

	statRootDevice = func(string) (uint64, bool, error) { return 1, true, nil }
	entryDevice = func(info fs.FileInfo) (uint64, bool) {
		for _, name := range foreign {
			if info.Name() == name {
				return 2, true
			}
		}

		return 1, true
	}
}

func TestRun_MetadataErrorsAreCounted(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]int{"ok": 2, "bad": 9, "sub/worse": 7})
	failInfo(t, "bad", "worse")

	var log bytes.Buffer

	stats, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 5, Log: &log}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.ErrorCount)
	assert.Equal(t, []topn.Group{{Size: 2, Paths: []string{filepath.Join(root, "ok")}}}, stats.Groups)
	assert.Contains(t, log.String(), "retrieving metadata for "+filepath.Join(root, "bad"))
	assert.Contains(t, log.String(), "metadata unavailable")
}

func TestRun_UnreadableDirectoryMetadataPrunes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]int{"ok": 2, "sub/inner": 9})
	fakeDevices(t)
	failInfo(t, "sub")

	stats, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 5, SameFilesystem: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.ErrorCount)
	assert.Equal(t, []topn.Group{{Size: 2, Paths: []string{filepath.Join(root, "ok")}}}, stats.Groups)
}

func TestRun_ErrorClearsStatusLine(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]int{"bad": 1})
	failInfo(t, "bad")

	var log bytes.Buffer

	_, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 1, Log: &log}, func(int64, int64) {})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(log.String(), "\r\033[2Kretrieving metadata"), "%q", log.String())
}

func TestRun_SameFilesystemPrunesOtherDevices(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]int{"local": 1, "mnt/inside": 5, "remote": 9})
	fakeDevices(t, "mnt", "remote")

	var log bytes.Buffer

	stats, err := Run(context.Background(), Options{
		Paths: []string{root}, TopN: 5, SameFilesystem: true, Debug: true, Log: &log,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []topn.Group{{Size: 1, Paths: []string{filepath.Join(root, "local")}}}, stats.Groups)
	assert.Equal(t, int64(1), stats.FileCount)
	assert.Contains(t, log.String(), "skipping directory on other filesystem: "+filepath.Join(root, "mnt"))
	assert.Contains(t, log.String(), "skipping file on other filesystem: "+filepath.Join(root, "remote"))

	stats, err = Run(context.Background(), Options{Paths: []string{root}, TopN: 5}, nil)
	require.NoError(t, err)
	assert.Len(t, stats.Groups, 3)
}

func TestValidateRoots_DeviceFailure(t *testing.T) {
	root := t.TempDir()

	orig := statRootDevice

	t.Cleanup(func() { statRootDevice = orig })

	statRootDevice = func(string) (uint64, bool, error) { return 0, false, errors.New("stat failed") }

	require.NoError(t, ValidateRoots([]string{root}, false))
	require.ErrorContains(t, ValidateRoots([]string{root}, true), "reading device of")
}
