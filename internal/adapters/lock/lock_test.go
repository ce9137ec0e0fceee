package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/redeploy/internal/core/domain"
)

func TestAcquireIsExclusivePerName(t *testing.T) {
	ctx := context.Background()
	l := NewFileLocker(t.TempDir(), 0)

	release, err := l.Acquire(ctx, "five-letters-bot")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "five-letters-bot")
	require.ErrorIs(t, err, domain.ErrLocked)

	other, err := l.Acquire(ctx, "another-bot")
	require.NoError(t, err)
	other()

	release()
	release() // second call is a no-op

	again, err := l.Acquire(ctx, "five-letters-bot")
	require.NoError(t, err)
	again()
}

func TestAcquireWaitsForRelease(t *testing.T) {
	ctx := context.Background()
	l := NewFileLocker(t.TempDir(), 2*time.Second)

	release, err := l.Acquire(ctx, "bot")
	require.NoError(t, err)

	go func() {
		time.Sleep(200 * time.Millisecond)
		release()
	}()

	start := time.Now()
	second, err := l.Acquire(ctx, "bot")
	require.NoError(t, err)
	second()
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestAcquireHonoursContext(t *testing.T) {
	l := NewFileLocker(t.TempDir(), time.Minute)

	release, err := l.Acquire(context.Background(), "bot")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "bot")
	require.ErrorIs(t, err, domain.ErrLocked)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPathSanitisesName(t *testing.T) {
	l := NewFileLocker("/run/redeploy", 0)
	assert.Equal(t, "/run/redeploy/a_b_c.lock", l.Path("a/b c"))
}
