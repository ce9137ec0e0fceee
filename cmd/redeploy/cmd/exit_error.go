package cmd

import (
	"errors"
	"fmt"

	"github.com/melih/redeploy/internal/core/domain"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitInternal  = 1
	ExitPreflight = 2
	ExitBuild     = 3
	ExitRun       = 4
	ExitLocked    = 5
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

func configError(err error) error {
	return &ExitError{Code: ExitPreflight, Err: err}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.Is(err, domain.ErrLocked):
		return ExitLocked
	case errors.Is(err, domain.ErrBuildFailed):
		return ExitBuild
	case errors.Is(err, domain.ErrRunFailed):
		return ExitRun
	case errors.Is(err, domain.ErrPreflight):
		return ExitPreflight
	}
	return ExitInternal
}
