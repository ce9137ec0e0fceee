package domain

import "time"

// Journal records the progress of the most recent cycle for one container name.
type Journal struct {
	CycleID     string    `json:"cycle_id" yaml:"cycle_id"`
	Container   string    `json:"container" yaml:"container"`
	Phase       Phase     `json:"phase" yaml:"phase"`
	ImageID     string    `json:"image_id,omitempty" yaml:"image_id,omitempty"`
	ContainerID string    `json:"container_id,omitempty" yaml:"container_id,omitempty"`
	Revision    string    `json:"revision,omitempty" yaml:"revision,omitempty"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
}
