package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"
	"go.uber.org/zap"

	"github.com/melih/redeploy/internal/core/domain"
)

// Adapter implements ports.ContainerService, ports.VolumeService and
// ports.ImageService using the Docker SDK.
type Adapter struct {
	api         API
	logger      *zap.Logger
	stopTimeout time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithStopTimeout sets how long the engine waits before killing a stopping container.
func WithStopTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.stopTimeout = d }
}

// NewAdapter creates a new Docker adapter instance
func NewAdapter(api API, logger *zap.Logger, opts ...Option) *Adapter {
	a := &Adapter{api: api, logger: logger, stopTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InspectContainer returns the container with the given name or ID.
func (a *Adapter) InspectContainer(ctx context.Context, name string) (*domain.Container, error) {
	info, err := a.api.ContainerInspect(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", name, translate(err))
	}
	return fromInspect(info), nil
}

// ListContainers returns containers with details; all includes stopped ones.
func (a *Adapter) ListContainers(ctx context.Context, all bool) ([]domain.Container, error) {
	containers, err := a.api.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", translate(err))
	}

	result := make([]domain.Container, 0, len(containers))
	for _, c := range containers {
		result = append(result, fromSummary(c))
	}
	return result, nil
}

// StopContainer stops a running container. Stopping an already stopped
// container is not an error.
func (a *Adapter) StopContainer(ctx context.Context, name string) error {
	secs := int(a.stopTimeout / time.Second)
	// the engine may take the whole grace period before SIGKILL
	ctx, cancel := context.WithTimeout(ctx, a.stopTimeout+30*time.Second)
	defer cancel()

	if err := a.api.ContainerStop(ctx, name, container.StopOptions{Timeout: &secs}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", name, translate(err))
	}
	return nil
}

// RemoveContainer removes a stopped container. Volumes are left in place.
func (a *Adapter) RemoveContainer(ctx context.Context, name string) error {
	if err := a.api.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", name, translate(err))
	}
	return nil
}

// RunContainer creates and starts a detached container from spec.
func (a *Adapter) RunContainer(ctx context.Context, spec domain.RunSpec) (string, error) {
	cfg, hostCfg, err := buildConfigs(spec)
	if err != nil {
		return "", err
	}

	resp, err := a.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", spec.Name, translate(err))
	}
	for _, w := range resp.Warnings {
		a.logger.Warn("container create warning", zap.String("container", spec.Name), zap.String("warning", w))
	}

	if err := a.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return resp.ID, fmt.Errorf("failed to start container %s: %w", spec.Name, translate(err))
	}

	a.logger.Info("container started",
		zap.String("container", spec.Name),
		zap.String("id", shortID(resp.ID)),
		zap.String("image", spec.Image),
	)
	return resp.ID, nil
}

// GetContainerLogs returns a multiplexed stream of container stdout and stderr.
func (a *Adapter) GetContainerLogs(ctx context.Context, name string, opts domain.LogsOptions) (io.ReadCloser, error) {
	rc, err := a.api.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
		Timestamps: opts.Timestamps,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read logs of %s: %w", name, translate(err))
	}
	return rc, nil
}

// InspectImage returns the image referenced by tag or ID.
func (a *Adapter) InspectImage(ctx context.Context, ref string) (*domain.Image, error) {
	info, _, err := a.api.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect image %s: %w", ref, translate(err))
	}
	img := &domain.Image{ID: info.ID, Tags: info.RepoTags}
	if t, err := time.Parse(time.RFC3339Nano, info.Created); err == nil {
		img.Created = t
	}
	if info.Config != nil {
		img.Labels = info.Config.Labels
	}
	return img, nil
}

func buildConfigs(spec domain.RunSpec) (*container.Config, *container.HostConfig, error) {
	cfg := &container.Config{
		Image:  spec.Image,
		Env:    spec.Env,
		Labels: spec.Labels,
	}
	hostCfg := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyMode(spec.RestartPolicy)},
	}

	if spec.VolumeName != "" {
		hostCfg.Mounts = []mount.Mount{{
			Type:   mount.TypeVolume,
			Source: spec.VolumeName,
			Target: spec.MountPath,
		}}
	}

	if len(spec.Ports) > 0 {
		exposed, bindings, err := nat.ParsePortSpecs(spec.Ports)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid port mapping: %w", err)
		}
		cfg.ExposedPorts = exposed
		hostCfg.PortBindings = bindings
	}

	if spec.Memory != "" {
		mem, err := units.RAMInBytes(spec.Memory)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid memory limit %q: %w", spec.Memory, err)
		}
		hostCfg.Memory = mem
	}
	if spec.CPUs > 0 {
		hostCfg.NanoCPUs = int64(spec.CPUs * 1e9)
	}

	return cfg, hostCfg, nil
}

func fromInspect(info types.ContainerJSON) *domain.Container {
	c := &domain.Container{}
	if info.ContainerJSONBase != nil {
		c.ID = shortID(info.ID)
		c.Name = strings.TrimPrefix(info.Name, "/")
		c.ImageID = info.Image
		if info.State != nil {
			c.State = info.State.Status
			c.Status = info.State.Status
		}
		if t, err := time.Parse(time.RFC3339Nano, info.Created); err == nil {
			c.Created = t
		}
	}
	if info.Config != nil {
		c.Image = info.Config.Image
		c.Labels = info.Config.Labels
	}
	return c
}

func fromSummary(s types.Container) domain.Container {
	// Use the first name if available, remove slash
	name := ""
	if len(s.Names) > 0 {
		name = strings.TrimPrefix(s.Names[0], "/")
	}
	return domain.Container{
		ID:      shortID(s.ID),
		Name:    name,
		Image:   s.Image,
		ImageID: s.ImageID,
		Status:  s.Status,
		State:   s.State,
		Created: time.Unix(s.Created, 0).UTC(),
		Labels:  s.Labels,
	}
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// translate maps engine errors onto domain sentinels while keeping the
// engine's own message.
func translate(err error) error {
	switch {
	case errdefs.IsNotFound(err):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errdefs.IsConflict(err):
		return fmt.Errorf("%w: %w", domain.ErrConflict, err)
	}
	return err
}
