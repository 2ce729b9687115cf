package dirstat

import (
	"io"
	"sync"
	"time"

	"github.com/idelchi/largest/internal/topn"
)

// Stats holds the result of a scan.
type Stats struct {
	// Roots are the directories that were scanned, in order.
	Roots []string `json:"roots"`
	// Groups are the retained size groups, ascending by size.
	Groups []topn.Group `json:"groups"`
	// FileCount is the total number of regular files seen.
	FileCount int64 `json:"file_count"`
	// TotalBytes is the cumulative size of all regular files seen.
	TotalBytes int64 `json:"total_bytes"`
	// ErrorCount is the number of entries that could not be read.
	ErrorCount int64 `json:"error_count"`
	// Elapsed is the total time taken for the scan.
	Elapsed time.Duration `json:"elapsed"`
	// RetainedFiles is the number of files across all Groups.
	RetainedFiles int `json:"retained_files"`
	// TopN is the number of distinct sizes tracked.
	TopN int `json:"top_n"`
}

// Options configures the scan and CLI behavior.
type Options struct {
	// Paths are the root directories to scan.
	Paths []string
	// TopN is the number of distinct sizes to retain.
	TopN int
	// SameFilesystem restricts traversal to the device of each root.
	SameFilesystem bool
	// SkipHidden skips entries whose name starts with a dot.
	SkipHidden bool
	// Decimal selects powers of 1000 instead of 1024 for display.
	Decimal bool
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Debug indicates whether debug output is enabled.
	Debug bool
	// Output represents output format (table or json).
	Output string
	// Generator is the shell to emit a completion script for.
	Generator string
	// Version indicates whether to show version and exit.
	Version bool
	// Log receives debug and error messages. Defaults to os.Stderr.
	Log io.Writer
}

// Entry is a single walked filesystem entry as seen by the tracker.
type Entry struct {
	// Regular is true for regular files. Size is only meaningful when set.
	Regular bool
	// Size is the size in bytes.
	Size uint64
	// Path is the path as produced by the walk.
	Path string
}

// collector owns the tracker and tallies for a single run.
// fastwalk calls back from its worker goroutine, so access is serialized.
type collector struct {
	mu         sync.Mutex
	tracker    *topn.Tracker
	fileCount  int64
	totalBytes int64
	errorCount int64

	hook         func(files, bytes int64)
	interval     time.Duration
	lastProgress time.Time
}

func newCollector(topN int, hook func(int64, int64), interval time.Duration) *collector {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	return &collector{
		tracker:      topn.New(topN),
		hook:         hook,
		interval:     interval,
		lastProgress: time.Now(),
	}
}

func (c *collector) addError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errorCount++
}

// add feeds a regular file entry into the tracker. Other entries are ignored.
func (c *collector) add(e Entry) {
	if !e.Regular {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fileCount++
	c.totalBytes += int64(e.Size) //nolint:gosec // file sizes fit in int64
	c.tracker.Add(e.Size, e.Path)

	if c.hook != nil && time.Since(c.lastProgress) >= c.interval {
		c.lastProgress = time.Now()
		c.hook(c.fileCount, c.totalBytes)
	}
}

// floor returns the smallest retained size so far.
func (c *collector) floor() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tracker.Floor()
}

// finalize produces the Stats from the collected data.
func (c *collector) finalize(roots []string) *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return &Stats{
		Roots:         roots,
		Groups:        c.tracker.Results(),
		FileCount:     c.fileCount,
		TotalBytes:    c.totalBytes,
		ErrorCount:    c.errorCount,
		RetainedFiles: c.tracker.Files(),
		TopN:          c.tracker.Cap(),
	}
}
