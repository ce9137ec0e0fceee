package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/docker/docker/pkg/stdcopy"

	"github.com/melih/redeploy/internal/core/domain"
	"github.com/melih/redeploy/internal/core/ports"
)

// fakeEngine is an in-memory container engine implementing the container,
// volume, image and builder ports.
type fakeEngine struct {
	mu         sync.Mutex
	containers map[string]*domain.Container
	specs      map[string]domain.RunSpec
	volumes    map[string]bool
	images     map[string]*domain.Image
	builds     int
	seq        int

	buildErr  error
	stopErr   error
	removeErr error
	inspErr   error
	runCalls  int
	stopCalls int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		containers: map[string]*domain.Container{},
		specs:      map[string]domain.RunSpec{},
		volumes:    map[string]bool{},
		images:     map[string]*domain.Image{},
	}
}

func (f *fakeEngine) InspectContainer(_ context.Context, name string) (*domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inspErr != nil {
		return nil, f.inspErr
	}
	c, ok := f.containers[name]
	if !ok {
		return nil, fmt.Errorf("inspect %s: %w", name, domain.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeEngine) ListContainers(_ context.Context, all bool) ([]domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Container
	for _, c := range f.containers {
		if all || c.Running() {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeEngine) StopContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if f.stopErr != nil {
		return f.stopErr
	}
	c, ok := f.containers[name]
	if !ok {
		return fmt.Errorf("stop %s: %w", name, domain.ErrNotFound)
	}
	c.State = "exited"
	return nil
}

func (f *fakeEngine) RemoveContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	if _, ok := f.containers[name]; !ok {
		return fmt.Errorf("remove %s: %w", name, domain.ErrNotFound)
	}
	delete(f.containers, name)
	return nil
}

func (f *fakeEngine) RunContainer(_ context.Context, spec domain.RunSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls++
	if _, ok := f.containers[spec.Name]; ok {
		return "", fmt.Errorf("create %s: %w", spec.Name, domain.ErrConflict)
	}
	if spec.VolumeName != "" && !f.volumes[spec.VolumeName] {
		return "", errors.New("volume does not exist")
	}
	f.seq++
	id := fmt.Sprintf("c%011d", f.seq)
	f.containers[spec.Name] = &domain.Container{ID: id, Name: spec.Name, Image: spec.Image, State: "running", Status: "Up", Labels: spec.Labels}
	f.specs[spec.Name] = spec
	return id, nil
}

func (f *fakeEngine) GetContainerLogs(_ context.Context, name string, _ domain.LogsOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[name]; !ok {
		return nil, fmt.Errorf("logs %s: %w", name, domain.ErrNotFound)
	}
	var buf strings.Builder
	stdout := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
	stderr := stdcopy.NewStdWriter(&buf, stdcopy.Stderr)
	_, _ = stdout.Write([]byte("bot started\n"))
	_, _ = stderr.Write([]byte("warning: slow network\n"))
	return io.NopCloser(strings.NewReader(buf.String())), nil
}

func (f *fakeEngine) EnsureVolume(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.volumes[name] {
		return false, nil
	}
	f.volumes[name] = true
	return true, nil
}

func (f *fakeEngine) InspectVolume(_ context.Context, name string) (*domain.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.volumes[name] {
		return nil, fmt.Errorf("volume %s: %w", name, domain.ErrNotFound)
	}
	return &domain.Volume{Name: name, Driver: "local"}, nil
}

func (f *fakeEngine) InspectImage(_ context.Context, ref string) (*domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[ref]
	if !ok {
		return nil, fmt.Errorf("image %s: %w", ref, domain.ErrNotFound)
	}
	return img, nil
}

func (f *fakeEngine) BuildImage(_ context.Context, req ports.BuildRequest) (*ports.BuildResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	f.builds++
	id := fmt.Sprintf("sha256:%064d", f.builds)
	f.images[req.Tag] = &domain.Image{ID: id, Tags: []string{req.Tag + ":latest"}}
	return &ports.BuildResult{ImageID: id, Tag: req.Tag, Revision: "abc123"}, nil
}

// addRunning seeds a container as if a previous cycle had started it.
func (f *fakeEngine) addRunning(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[name] = &domain.Container{ID: "old000000000", Name: name, Image: "five-letters-bot", State: "running"}
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) Acquire(_ context.Context, name string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[name] {
		return nil, fmt.Errorf("%w: %s", domain.ErrLocked, name)
	}
	l.held[name] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, name)
	}, nil
}
