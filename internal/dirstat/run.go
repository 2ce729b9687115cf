package dirstat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charlievieth/fastwalk"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// ErrNotDirectory is returned when a requested root is missing or not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Seams over the filesystem, replaced in tests.
//
//nolint:gochecknoglobals // Test seams
var (
	entryInfo = func(d fs.DirEntry) (fs.FileInfo, error) {
		return d.Info()
	}
	statRootDevice = rootDevice
	entryDevice    = deviceOf
)

// logger provides conditional debug output and unconditional error output.
type logger struct {
	enabled bool
	out     io.Writer
	// clearLine erases a transient status line before writing.
	clearLine bool
}

// printf prints debug output if logging is enabled.
func (l logger) printf(format string, args ...any) {
	if l.enabled {
		fmt.Fprintf(l.out, format, args...)
	}
}

// errorf reports a recoverable error.
func (l logger) errorf(format string, args ...any) {
	if l.clearLine {
		fmt.Fprint(l.out, "\r\033[2K")
	}

	fmt.Fprintf(l.out, format, args...)
}

// isHidden reports whether a base name is hidden by the dot convention.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// scanRoot is a validated root directory.
type scanRoot struct {
	path   string
	dev    uint64
	hasDev bool
}

// resolveRoots validates every path and, with sameFilesystem, reads the
// device each root lives on.
func resolveRoots(paths []string, sameFilesystem bool) ([]scanRoot, error) {
	roots := make([]scanRoot, 0, len(paths))

	for _, path := range paths {
		path = filepath.Clean(path)

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("accessing %q: %w", path, errors.Join(ErrNotDirectory, err))
		}

		if !info.IsDir() {
			return nil, fmt.Errorf("path %q: %w", path, ErrNotDirectory)
		}

		root := scanRoot{path: path}

		if sameFilesystem {
			root.dev, root.hasDev, err = statRootDevice(path)
			if err != nil {
				return nil, fmt.Errorf("reading device of %q: %w", path, err)
			}
		}

		roots = append(roots, root)
	}

	return roots, nil
}

// ValidateRoots checks that every path exists and is a directory, and with
// sameFilesystem that its device can be read.
func ValidateRoots(paths []string, sameFilesystem bool) error {
	_, err := resolveRoots(paths, sameFilesystem)

	return err
}

// Run scans every root in opt.Paths and returns the largest files found.
//
// All roots are validated before anything is walked, so an invalid root fails
// the run without side effects. Errors on individual entries are written to
// opt.Log and counted in Stats.ErrorCount; they do not fail the run.
//
// The walk can be cancelled via ctx. Progress updates are sent to
// progressHook if provided, from the walking goroutine.
func Run(ctx context.Context, opt Options, progressHook func(int64, int64)) (*Stats, error) {
	if opt.Log == nil {
		opt.Log = os.Stderr
	}

	log := logger{enabled: opt.Debug, out: opt.Log, clearLine: progressHook != nil}

	if len(opt.Paths) == 0 {
		opt.Paths = []string{"."}
	}

	roots, err := resolveRoots(opt.Paths, opt.SameFilesystem)
	if err != nil {
		return nil, err
	}

	collector := newCollector(opt.TopN, progressHook, opt.ProgressInterval)

	start := time.Now()

	for _, root := range roots {
		log.printf("[debug]: scanning %s\n", root.path)

		if err := walkRoot(ctx, root, opt, log, collector); err != nil {
			return nil, err
		}

		if floor, ok := collector.floor(); ok {
			log.printf("[debug]: smallest retained size after %s: %d bytes\n", root.path, floor)
		}
	}

	paths := make([]string, len(roots))
	for i, root := range roots {
		paths[i] = root.path
	}

	stats := collector.finalize(paths)
	stats.Elapsed = time.Since(start)

	return stats, nil
}

// walkRoot walks a single root and feeds its entries into c.
//
//nolint:gocognit,cyclop,funlen // filters read best inline
func walkRoot(ctx context.Context, root scanRoot, opt Options, log logger, c *collector) error {
	conf := &fastwalk.Config{
		Follow:     false, // Don't follow symlinks
		Sort:       fastwalk.SortLexical,
		NumWorkers: 1,
	}

	otherDevice := func(info fs.FileInfo) bool {
		if !root.hasDev {
			return false
		}

		dev, ok := entryDevice(info)

		return ok && dev != root.dev
	}

	//nolint:varnamelen // d is standard for DirEntry
	return fastwalk.Walk(conf, root.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.errorf("%s: %v\n", path, err)
			c.addError()

			return nil
		}

		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}

		isRoot := path == root.path

		if opt.SkipHidden && !isRoot && isHidden(d.Name()) {
			if d.IsDir() {
				log.printf("[debug]: skipping hidden directory: %s\n", path)

				return filepath.SkipDir
			}

			log.printf("[debug]: skipping hidden file: %s\n", path)

			return nil
		}

		if d.IsDir() {
			if !root.hasDev || isRoot {
				return nil
			}

			info, err := entryInfo(d)
			if err != nil {
				log.errorf("retrieving metadata for %s: %v\n", path, err)
				c.addError()

				return filepath.SkipDir
			}

			if otherDevice(info) {
				log.printf("[debug]: skipping directory on other filesystem: %s\n", path)

				return filepath.SkipDir
			}

			return nil
		}

		entry := Entry{Regular: d.Type().IsRegular(), Path: path}

		if entry.Regular {
			info, err := entryInfo(d)
			if err != nil {
				log.errorf("retrieving metadata for %s: %v\n", path, err)
				c.addError()

				return nil
			}

			if otherDevice(info) {
				log.printf("[debug]: skipping file on other filesystem: %s\n", path)

				return nil
			}

			entry.Regular = info.Mode().IsRegular()
			entry.Size = uint64(info.Size()) //nolint:gosec // regular file sizes are non-negative
		}

		c.add(entry)

		return nil
	})
}
