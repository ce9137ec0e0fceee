package domain

import "time"

// Container represents a container instance known to the engine.
type Container struct {
	ID      string            `json:"id" yaml:"id"`
	Name    string            `json:"name" yaml:"name"`
	Image   string            `json:"image" yaml:"image"`
	ImageID string            `json:"image_id,omitempty" yaml:"image_id,omitempty"`
	Status  string            `json:"status" yaml:"status"`
	State   string            `json:"state" yaml:"state"` // running, exited, created, etc.
	Created time.Time         `json:"created" yaml:"created"`
	Labels  map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Running reports whether the engine considers the container running.
// Paused and restarting containers still hold the name and must be stopped.
func (c Container) Running() bool {
	switch c.State {
	case "running", "paused", "restarting":
		return true
	}
	return false
}

// Image is a named, tagged build artifact.
type Image struct {
	ID      string            `json:"id" yaml:"id"`
	Tags    []string          `json:"tags" yaml:"tags"`
	Created time.Time         `json:"created" yaml:"created"`
	Labels  map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Volume is a named persistent storage area that survives container removal.
type Volume struct {
	Name       string            `json:"name" yaml:"name"`
	Driver     string            `json:"driver" yaml:"driver"`
	Mountpoint string            `json:"mountpoint" yaml:"mountpoint"`
	Labels     map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// RunSpec describes the container created by the run step.
type RunSpec struct {
	Name          string
	Image         string
	Env           []string // KEY=VALUE, passed through unmodified
	VolumeName    string
	MountPath     string
	Labels        map[string]string
	Ports         []string // host:container[/proto]
	Memory        string   // e.g. 256m
	CPUs          float64
	RestartPolicy string
}

// LogsOptions selects the container output to return.
type LogsOptions struct {
	Tail       string
	Follow     bool
	Timestamps bool
}

// Label keys stamped on images and containers.
const (
	LabelManaged  = "io.redeploy.managed"
	LabelCycle    = "io.redeploy.cycle"
	LabelRevision = "io.redeploy.revision"
	LabelDirty    = "io.redeploy.dirty"
)
