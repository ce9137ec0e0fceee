package domain

import "errors"

var (
	// ErrNotFound is returned when a container, image or volume does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a name is already taken by another object.
	ErrConflict = errors.New("name conflict")

	// ErrBuildFailed wraps every image build failure. A cycle never runs a
	// container after it.
	ErrBuildFailed = errors.New("image build failed")

	// ErrRunFailed wraps failures of the run step (volume, create, start).
	ErrRunFailed = errors.New("container run failed")

	// ErrPreflight wraps configuration and env file problems found before any
	// engine state is touched.
	ErrPreflight = errors.New("preflight check failed")

	// ErrLocked is returned when another cycle holds the lock for the same name.
	ErrLocked = errors.New("cycle already in progress")

	// ErrInvalidTransition is returned by ValidateTransition.
	ErrInvalidTransition = errors.New("invalid phase transition")
)
