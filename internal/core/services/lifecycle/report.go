package lifecycle

import (
	"time"

	"github.com/melih/redeploy/internal/core/domain"
)

// StepStatus is the outcome of one lifecycle step.
type StepStatus string

const (
	StepDone      StepStatus = "done"
	StepSkipped   StepStatus = "skipped"
	StepTolerated StepStatus = "tolerated" // failed, cycle continued
	StepFailed    StepStatus = "failed"
)

// Step records what a lifecycle step did.
type Step struct {
	Name     string        `json:"name" yaml:"name"`
	Status   StepStatus    `json:"status" yaml:"status"`
	Detail   string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Report is the result of one cycle, successful or not.
type Report struct {
	CycleID       string             `json:"cycle_id" yaml:"cycle_id"`
	Container     string             `json:"container" yaml:"container"`
	Phase         domain.Phase       `json:"phase" yaml:"phase"`
	Recovered     domain.Phase       `json:"recovered_from,omitempty" yaml:"recovered_from,omitempty"`
	ImageID       string             `json:"image_id,omitempty" yaml:"image_id,omitempty"`
	ContainerID   string             `json:"container_id,omitempty" yaml:"container_id,omitempty"`
	Revision      string             `json:"revision,omitempty" yaml:"revision,omitempty"`
	VolumeCreated bool               `json:"volume_created" yaml:"volume_created"`
	StartedAt     time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time          `json:"finished_at" yaml:"finished_at"`
	Steps         []Step             `json:"steps" yaml:"steps"`
	Containers    []domain.Container `json:"containers" yaml:"containers"`
	Error         string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// Status describes the current state of the managed objects.
type Status struct {
	Container *domain.Container `json:"container,omitempty" yaml:"container,omitempty"`
	Image     *domain.Image     `json:"image,omitempty" yaml:"image,omitempty"`
	Volume    *domain.Volume    `json:"volume,omitempty" yaml:"volume,omitempty"`
	Journal   *domain.Journal   `json:"journal,omitempty" yaml:"journal,omitempty"`
}
