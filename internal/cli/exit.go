package cli

import (
	"errors"
	"fmt"
)

// maxExitCode is the largest status a process can report without wrapping.
const maxExitCode = 255

// ExitError carries the process exit status for a failed or degraded run.
// Err is nil when the run completed but some entries could not be read.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d entries could not be read", e.Code)
	}

	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// usageError marks err as a command line usage error.
func usageError(err error) error {
	return &ExitError{Code: 2, Err: err}
}

// ExitCode maps the result of Execute to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return 1
}

// Silent reports whether err needs no message beyond its exit status,
// since the individual errors were already reported while scanning.
func Silent(err error) bool {
	var exitErr *ExitError

	return errors.As(err, &exitErr) && exitErr.Err == nil
}

func clampExitCode(count int64) int {
	return int(min(count, maxExitCode))
}
