package docker

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types/volume"
	"go.uber.org/zap"

	"github.com/melih/redeploy/internal/core/domain"
)

// EnsureVolume is an idempotent operation: an existing volume is reused,
// a missing one is created.
func (a *Adapter) EnsureVolume(ctx context.Context, name string) (bool, error) {
	_, err := a.api.VolumeInspect(ctx, name)
	if err == nil {
		return false, nil
	}
	if err = translate(err); !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("failed to inspect volume %s: %w", name, err)
	}

	created, err := a.api.VolumeCreate(ctx, volume.CreateOptions{
		Name:   name,
		Labels: map[string]string{domain.LabelManaged: "true"},
	})
	if err != nil {
		return false, fmt.Errorf("failed to create volume %s: %w", name, translate(err))
	}
	a.logger.Info("volume created", zap.String("volume", created.Name), zap.String("driver", created.Driver))
	return true, nil
}

// InspectVolume returns the named volume.
func (a *Adapter) InspectVolume(ctx context.Context, name string) (*domain.Volume, error) {
	v, err := a.api.VolumeInspect(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect volume %s: %w", name, translate(err))
	}
	return &domain.Volume{
		Name:       v.Name,
		Driver:     v.Driver,
		Mountpoint: v.Mountpoint,
		Labels:     v.Labels,
	}, nil
}
