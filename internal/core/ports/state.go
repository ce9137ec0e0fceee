package ports

import (
	"context"

	"github.com/melih/redeploy/internal/core/domain"
)

// Locker serialises cycles that target the same container name.
type Locker interface {
	// Acquire takes the lock for name. It returns an error wrapping
	// domain.ErrLocked if the lock is still held when ctx is done or the
	// configured wait elapses.
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// JournalStore persists the last cycle journal per container name.
type JournalStore interface {
	// Load returns the journal for name, or nil if none was recorded.
	Load(name string) (*domain.Journal, error)
	Save(j *domain.Journal) error
}

// EnvSource loads the environment injected into the container.
type EnvSource interface {
	// Load returns KEY=VALUE pairs in a stable order.
	Load(path string) ([]string, error)
}
