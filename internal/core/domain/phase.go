package domain

import "fmt"

// Phase is the lifecycle state of the managed container.
type Phase string

const (
	PhaseAbsent   Phase = "absent"   // no cycle has run yet
	PhaseStopping Phase = "stopping" // stopping the previous container
	PhaseRemoving Phase = "removing" // removing the previous container
	PhaseBuilding Phase = "building" // building the image
	PhaseStarting Phase = "starting" // creating and starting the new container
	PhaseRunning  Phase = "running"  // cycle completed
	PhaseFailed   Phase = "failed"   // cycle aborted
)

// validTransitions maps from-phase to allowed to-phases.
var validTransitions = map[Phase]map[Phase]bool{
	PhaseAbsent: {
		PhaseStopping: true,
		PhaseRemoving: true,
		PhaseBuilding: true,
	},
	PhaseStopping: {
		PhaseRemoving: true,
		PhaseFailed:   true,
	},
	PhaseRemoving: {
		PhaseBuilding: true,
		PhaseFailed:   true,
	},
	PhaseBuilding: {
		PhaseStarting: true,
		PhaseFailed:   true,
	},
	PhaseStarting: {
		PhaseRunning: true,
		PhaseFailed:  true,
	},
	PhaseRunning: {
		PhaseStopping: true,
	},
	PhaseFailed: {
		PhaseStopping: true,
		PhaseRemoving: true,
		PhaseBuilding: true,
	},
}

// ValidateTransition checks if a phase transition is allowed.
func ValidateTransition(from, to Phase) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source phase %q", ErrInvalidTransition, from)
	}
	if !allowed[to] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminal reports whether a cycle that recorded this phase finished.
// A journal left in any other phase means the cycle was interrupted.
func (p Phase) IsTerminal() bool {
	return p == PhaseAbsent || p == PhaseRunning || p == PhaseFailed
}

// Entry returns the phase a new cycle starts from given the last recorded
// phase. Interrupted cycles are treated as failed so the next one can recover.
func (p Phase) Entry() Phase {
	if p == "" {
		return PhaseAbsent
	}
	if !p.IsTerminal() {
		return PhaseFailed
	}
	return p
}
