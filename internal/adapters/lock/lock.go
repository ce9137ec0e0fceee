// Package lock serialises lifecycle cycles that target the same container
// name, across processes on the same host.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/melih/redeploy/internal/core/domain"
)

const pollInterval = 100 * time.Millisecond

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// FileLocker takes an exclusive lock on <dir>/<name>.lock.
type FileLocker struct {
	dir  string
	wait time.Duration
}

// NewFileLocker returns a locker storing lock files in dir. wait bounds how
// long Acquire polls for a held lock; zero fails immediately.
func NewFileLocker(dir string, wait time.Duration) *FileLocker {
	return &FileLocker{dir: dir, wait: wait}
}

// Path returns the lock file used for name.
func (l *FileLocker) Path(name string) string {
	return filepath.Join(l.dir, unsafeChars.ReplaceAllString(name, "_")+".lock")
}

// Acquire takes the lock for name. The returned release func is safe to call
// more than once.
func (l *FileLocker) Acquire(ctx context.Context, name string) (func(), error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir %s: %w", l.dir, err)
	}
	path := l.Path(name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	deadline := time.Now().Add(l.wait)
	for {
		ok, err := tryLock(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			f.Close()
			return nil, fmt.Errorf("%w: %s is locked by another process", domain.ErrLocked, name)
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrLocked, name, ctx.Err())
		case <-time.After(pollInterval):
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		unlock(f)
		f.Close()
	}, nil
}
