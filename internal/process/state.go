package process

import "time"

// State represents the current state of the supervisor.
type State string

// Supervisor states.
const (
	StateIdle           State = "idle"            // Before the first launch
	StateStarting       State = "starting"        // Launch in progress
	StateRunning        State = "running"         // Child alive
	StateRestartPending State = "restart_pending" // Child gone, timer armed
	StateShuttingDown   State = "shutting_down"   // Terminal
)

// String implements fmt.Stringer.
func (s State) String() string { return string(s) }

// IsTerminal reports whether no further transitions can happen.
func (s State) IsTerminal() bool { return s == StateShuttingDown }

// ExitStatus describes how a child ended.
type ExitStatus struct {
	Code        int    // exit code, -1 when killed by a signal or never started
	Signal      string // terminating signal name, empty for a normal exit
	SpawnFailed bool   // the child never started
	Err         error  // OS-level failure reported by wait or start, if any
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State      State
	PID        int
	Launches   int
	Restarts   int
	StartedAt  time.Time
	LastExit   *ExitStatus
	LastExitAt time.Time
}
