package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/idelchi/largest/internal/dirstat"
)

// runScan performs the scan, replaced in tests.
//
//nolint:gochecknoglobals // Test seam
var runScan = dirstat.Run

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

func logic(ctx context.Context, options dirstat.Options, stdout, stderr io.Writer) error {
	// Fail on bad roots before anything is printed.
	if err := dirstat.ValidateRoots(options.Paths, options.SameFilesystem); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	table := strings.ToLower(options.Output) == "table"
	enableProgress := table && !options.Debug && isTerminal(stderr)

	if table {
		if err := PrintHeader(options.TopN, stdout); err != nil {
			return err
		}
	}

	var progressHook func(files, bytes int64)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(stderr, "\033[?25l")
		defer fmt.Fprint(stderr, "\033[?25h")

		progressHook = func(files, bytes int64) {
			msg := fmt.Sprintf("Scanning… %d files, %s",
				files, FormatSize(uint64(bytes), options.Decimal)) //nolint:gosec // Bytes is always positive
			fmt.Fprintf(stderr, "\r\033[2K%s\r", msg)
		}
	}

	stats, err := runScan(ctx, options, progressHook)

	// Clear the status line
	if enableProgress {
		fmt.Fprint(stderr, "\r\033[2K\r")
	}

	if err != nil {
		if errors.Is(err, dirstat.ErrNotDirectory) {
			return &ExitError{Code: 1, Err: err}
		}

		return err
	}

	if table {
		err = PrintTable(stats, options.Decimal, stdout)
	} else {
		err = PrintJSON(stats, stdout)
	}

	if err != nil {
		return err
	}

	if stats.ErrorCount > 0 {
		return &ExitError{Code: clampExitCode(stats.ErrorCount)}
	}

	return nil
}
