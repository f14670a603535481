package process

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned when a launch is attempted while a child is live.
	ErrAlreadyRunning = errors.New("child process already running")

	// ErrShuttingDown is returned once the supervisor has entered its terminal state.
	ErrShuttingDown = errors.New("supervisor is shutting down")
)

// SpawnError reports that the child could not be started, or that waiting on
// it failed at the OS level. Recovery goes through the normal exit path.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
