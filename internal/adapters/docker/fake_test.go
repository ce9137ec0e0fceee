package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/errdefs"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
)

// fakeAPI is an in-memory engine keyed by container name.
type fakeAPI struct {
	mu         sync.Mutex
	containers map[string]*fakeContainer
	volumes    map[string]volume.Volume
	images     map[string]types.ImageInspect
	nextID     int

	createErr error
	startErr  error
	stopCalls []string
	lastStop  container.StopOptions
}

type fakeContainer struct {
	id      string
	name    string
	state   string
	config  *container.Config
	hostCfg *container.HostConfig
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		containers: map[string]*fakeContainer{},
		volumes:    map[string]volume.Volume{},
		images:     map[string]types.ImageInspect{},
	}
}

func notFound(kind, name string) error {
	return errdefs.NotFound(fmt.Errorf("No such %s: %s", kind, name))
}

func (f *fakeAPI) Ping(context.Context) (types.Ping, error) { return types.Ping{}, nil }

func (f *fakeAPI) ContainerInspect(_ context.Context, name string) (types.ContainerJSON, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[name]
	if !ok {
		return types.ContainerJSON{}, notFound("container", name)
	}
	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:      c.id,
			Name:    "/" + c.name,
			Image:   "sha256:" + c.config.Image,
			Created: "2024-01-02T03:04:05.000000006Z",
			State:   &types.ContainerState{Status: c.state, Running: c.state == "running"},
		},
		Config: c.config,
	}, nil
}

func (f *fakeAPI) ContainerList(_ context.Context, opts container.ListOptions) ([]types.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Container
	for _, c := range f.containers {
		if !opts.All && c.state != "running" {
			continue
		}
		out = append(out, types.Container{
			ID:     c.id,
			Names:  []string{"/" + c.name},
			Image:  c.config.Image,
			State:  c.state,
			Status: strings.ToUpper(c.state[:1]) + c.state[1:],
			Labels: c.config.Labels,
		})
	}
	return out, nil
}

func (f *fakeAPI) ContainerCreate(_ context.Context, cfg *container.Config, hostCfg *container.HostConfig, _ *network.NetworkingConfig, _ *specs.Platform, name string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return container.CreateResponse{}, f.createErr
	}
	if _, ok := f.containers[name]; ok {
		return container.CreateResponse{}, errdefs.Conflict(fmt.Errorf("container name %q is already in use", name))
	}
	f.nextID++
	id := fmt.Sprintf("%064d", f.nextID)
	f.containers[name] = &fakeContainer{id: id, name: name, state: "created", config: cfg, hostCfg: hostCfg}
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeAPI) byID(id string) *fakeContainer {
	for _, c := range f.containers {
		if c.id == id || c.name == id {
			return c
		}
	}
	return nil
}

func (f *fakeAPI) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	c := f.byID(id)
	if c == nil {
		return notFound("container", id)
	}
	c.state = "running"
	return nil
}

func (f *fakeAPI) ContainerStop(_ context.Context, id string, opts container.StopOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls = append(f.stopCalls, id)
	f.lastStop = opts
	c := f.byID(id)
	if c == nil {
		return notFound("container", id)
	}
	c.state = "exited"
	return nil
}

func (f *fakeAPI) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.byID(id)
	if c == nil {
		return notFound("container", id)
	}
	delete(f.containers, c.name)
	return nil
}

func (f *fakeAPI) ContainerLogs(_ context.Context, id string, _ container.LogsOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byID(id) == nil {
		return nil, notFound("container", id)
	}
	return io.NopCloser(strings.NewReader("log line\n")), nil
}

func (f *fakeAPI) ImageBuild(context.Context, io.Reader, types.ImageBuildOptions) (types.ImageBuildResponse, error) {
	return types.ImageBuildResponse{}, errors.New("not supported by fake")
}

func (f *fakeAPI) ImageInspectWithRaw(_ context.Context, ref string) (types.ImageInspect, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[ref]
	if !ok {
		return types.ImageInspect{}, nil, notFound("image", ref)
	}
	return img, nil, nil
}

func (f *fakeAPI) VolumeCreate(_ context.Context, opts volume.CreateOptions) (volume.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := volume.Volume{Name: opts.Name, Driver: "local", Labels: opts.Labels, Mountpoint: "/var/lib/docker/volumes/" + opts.Name + "/_data"}
	f.volumes[opts.Name] = v
	return v, nil
}

func (f *fakeAPI) VolumeInspect(_ context.Context, name string) (volume.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.volumes[name]
	if !ok {
		return volume.Volume{}, notFound("volume", name)
	}
	return v, nil
}

func (f *fakeAPI) Close() error { return nil }
