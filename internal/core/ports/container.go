package ports

import (
	"context"
	"io"

	"github.com/melih/redeploy/internal/core/domain"
)

// ContainerService defines the core operations for managing containers.
// This interface allows us to switch between Docker, Podman, or Kubernetes
// without changing the lifecycle logic.
type ContainerService interface {
	// InspectContainer returns the container with the given name or ID, or an
	// error wrapping domain.ErrNotFound.
	InspectContainer(ctx context.Context, name string) (*domain.Container, error)
	// ListContainers lists containers; all includes stopped ones.
	ListContainers(ctx context.Context, all bool) ([]domain.Container, error)
	StopContainer(ctx context.Context, name string) error
	RemoveContainer(ctx context.Context, name string) error
	// RunContainer creates and starts a detached container and returns its ID.
	RunContainer(ctx context.Context, spec domain.RunSpec) (string, error)
	GetContainerLogs(ctx context.Context, name string, opts domain.LogsOptions) (io.ReadCloser, error)
}

// VolumeService manages named volumes.
type VolumeService interface {
	// EnsureVolume creates the volume if it does not exist and reports whether
	// it was created.
	EnsureVolume(ctx context.Context, name string) (created bool, err error)
	InspectVolume(ctx context.Context, name string) (*domain.Volume, error)
}

// ImageService inspects built images.
type ImageService interface {
	InspectImage(ctx context.Context, ref string) (*domain.Image, error)
}
