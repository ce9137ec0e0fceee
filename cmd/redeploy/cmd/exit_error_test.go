package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/melih/redeploy/internal/core/domain"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("daemon unreachable"), ExitInternal},
		{"preflight", fmt.Errorf("%w: open .env: no such file", domain.ErrPreflight), ExitPreflight},
		{"build", fmt.Errorf("%w: pip install exited 1", domain.ErrBuildFailed), ExitBuild},
		{"run", fmt.Errorf("%w: %w", domain.ErrRunFailed, domain.ErrConflict), ExitRun},
		{"locked", fmt.Errorf("%w: five-letters-bot", domain.ErrLocked), ExitLocked},
		{"explicit", configError(errors.New("bad yaml")), ExitPreflight},
		{"wrapped explicit", fmt.Errorf("outer: %w", &ExitError{Code: 7}), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	assert.Equal(t, "exit status 3", (&ExitError{Code: 3}).Error())

	inner := errors.New("boom")
	err := &ExitError{Code: 1, Err: inner}
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
