package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeChildStarted
	TypeChildExited
	TypeRestartScheduled
	TypeProgress
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published on every supervisor state transition.
type StateChangedEvent struct {
	From      string    `json:"from" example:"restart_pending"`
	To        string    `json:"to" example:"starting"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// ChildStartedEvent is published after a successful spawn.
type ChildStartedEvent struct {
	PID       int       `json:"pid"`
	Launch    int       `json:"launch" doc:"1-based launch counter"`
	Command   string    `json:"command" doc:"Command line with the stream key masked"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for ChildStartedEvent.
func (e ChildStartedEvent) Type() uint32 { return TypeChildStarted }

// ChildExitedEvent is published once per child lifetime, including failed spawns.
type ChildExitedEvent struct {
	PID         int       `json:"pid"`
	ExitCode    int       `json:"exit_code"`
	Signal      string    `json:"signal,omitempty"`
	SpawnFailed bool      `json:"spawn_failed"`
	Uptime      float64   `json:"uptime_seconds"`
	Timestamp   time.Time `json:"timestamp"`
}

// Type returns the event type identifier for ChildExitedEvent.
func (e ChildExitedEvent) Type() uint32 { return TypeChildExited }

// RestartScheduledEvent is published when the restart timer is armed.
type RestartScheduledEvent struct {
	Delay     time.Duration `json:"delay"`
	Restarts  int           `json:"restarts" doc:"Restarts scheduled so far, this one included"`
	Timestamp time.Time     `json:"timestamp"`
}

// Type returns the event type identifier for RestartScheduledEvent.
func (e RestartScheduledEvent) Type() uint32 { return TypeRestartScheduled }

// ProgressEvent carries one FFmpeg -progress report for the live child.
type ProgressEvent struct {
	Frame           int64     `json:"frame"`
	FPS             float64   `json:"fps" example:"29.97"`
	Bitrate         string    `json:"bitrate,omitempty" example:"1800.0kbits/s"`
	DroppedFrames   int64     `json:"drop_frames"`
	DuplicateFrames int64     `json:"dup_frames"`
	Speed           float64   `json:"speed" example:"1.0" doc:"Processing speed multiplier"`
	Ended           bool      `json:"ended" doc:"FFmpeg reported progress=end"`
	Timestamp       time.Time `json:"timestamp"`
}

// Type returns the event type identifier for ProgressEvent.
func (e ProgressEvent) Type() uint32 { return TypeProgress }
