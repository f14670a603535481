package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/livewatch/internal/events"
	"github.com/smazurov/livewatch/internal/launch"
)

// DefaultRestartDelay is the pause between a child exit and the next launch.
const DefaultRestartDelay = 5 * time.Second

// RestartPolicy is a fixed-delay, uncapped retry rule.
type RestartPolicy struct {
	Delay time.Duration
}

func (p RestartPolicy) delay() time.Duration {
	if p.Delay <= 0 {
		return DefaultRestartDelay
	}
	return p.Delay
}

// Provider supplies the launch.Spec for the next launch.
type Provider interface {
	LaunchSpec() (launch.Spec, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (launch.Spec, error)

// LaunchSpec implements Provider.
func (f ProviderFunc) LaunchSpec() (launch.Spec, error) { return f() }

// Options configures a new Supervisor.
type Options struct {
	// Provider builds the spec for each launch (required).
	Provider Provider

	// Launcher starts the child (required).
	Launcher Launcher

	Policy RestartPolicy

	// Signals delivers host termination signals. nil means only ctx stops Run.
	Signals <-chan os.Signal

	// Clock creates the restart timer. If nil, uses the real clock.
	Clock Clock

	// Bus receives lifecycle events (optional).
	Bus *events.Bus

	// Logger for supervisor operations. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Supervisor keeps exactly one child alive, restarting it after every exit.
type Supervisor struct {
	opts   Options
	clock  Clock
	logger *slog.Logger

	// Owned by the Run goroutine.
	state       State
	child       Child
	childExited <-chan ExitStatus
	startedAt   time.Time
	timer       Timer
	timerC      <-chan time.Time
	launches    int
	restarts    int

	restartReq chan struct{}
	done       chan struct{}
	doneOnce   sync.Once

	statusMu sync.RWMutex
	status   Status
}

// New creates a Supervisor in StateIdle.
func New(opts *Options) *Supervisor {
	if opts == nil || opts.Provider == nil || opts.Launcher == nil {
		panic("process.Options with Provider and Launcher is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &Supervisor{
		opts:       *opts,
		clock:      clock,
		logger:     logger,
		state:      StateIdle,
		restartReq: make(chan struct{}, 1),
		done:       make(chan struct{}),
		status:     Status{State: StateIdle},
	}
}

// Run launches the first child and processes lifecycle events until a
// termination signal arrives or ctx is cancelled, then returns nil.
// It returns a *launch.ConfigurationError, having spawned nothing further,
// when the provider cannot produce a spec.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.start(); err != nil {
		s.shutdown("configuration error")
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.shutdown(ctx.Err().Error())
			return nil

		case sig := <-s.opts.Signals:
			s.shutdown(sig.String())
			return nil

		case status := <-s.childExited:
			s.onExit(status)

		case <-s.timerC:
			s.timer, s.timerC = nil, nil
			if err := s.start(); err != nil {
				s.shutdown("configuration error")
				return err
			}

		case <-s.restartReq:
			s.onRestartRequest()
		}
	}
}

// RequestRestart interrupts the live child so the next launch picks up a new
// spec. The usual restart delay applies. Non-blocking; a pending request
// absorbs further ones.
func (s *Supervisor) RequestRestart() error {
	select {
	case <-s.done:
		return ErrShuttingDown
	default:
	}

	select {
	case s.restartReq <- struct{}{}:
		s.logger.Info("Restart requested")
	default:
		s.logger.Debug("Restart already pending, ignoring")
	}
	return nil
}

// Done is closed when the supervisor enters StateShuttingDown.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// Status returns a snapshot safe to read from any goroutine.
func (s *Supervisor) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	st := s.status
	if st.LastExit != nil {
		exit := *st.LastExit
		st.LastExit = &exit
	}
	return st
}

// start launches one child. Only configuration errors are returned; spawn
// failures are routed through onExit like any other exit.
func (s *Supervisor) start() error {
	switch {
	case s.state == StateShuttingDown:
		return ErrShuttingDown
	case s.child != nil, s.state == StateStarting, s.state == StateRunning:
		return ErrAlreadyRunning
	}

	s.setState(StateStarting)

	spec, err := s.opts.Provider.LaunchSpec()
	if err != nil {
		var cfgErr *launch.ConfigurationError
		if errors.As(err, &cfgErr) {
			s.logger.Error("Invalid launch configuration", "error", err)
			return err
		}
		s.spawnFailed(&SpawnError{Command: "provider", Err: err})
		return nil
	}

	s.launches++
	s.logger.Info("Starting child process", "launch", s.launches, "command", spec.String())

	child, err := s.opts.Launcher.Launch(spec)
	if err != nil {
		s.spawnFailed(&SpawnError{Command: spec.Command(), Err: err})
		return nil
	}

	s.child = child
	s.childExited = child.Exited()
	s.startedAt = time.Now()
	s.setState(StateRunning)

	s.logger.Info("Child process started", "pid", child.PID(), "launch", s.launches)
	s.opts.Bus.Publish(events.ChildStartedEvent{
		PID:       child.PID(),
		Launch:    s.launches,
		Command:   spec.String(),
		Timestamp: s.startedAt,
	})
	return nil
}

// spawnFailed logs the error and queues the exit event that os/exec never
// emits for a process that did not start.
func (s *Supervisor) spawnFailed(err *SpawnError) {
	s.onError(err)

	exited := make(chan ExitStatus, 1)
	exited <- ExitStatus{Code: -1, SpawnFailed: true, Err: err}
	s.childExited = exited
}

// onError only logs. Restart scheduling belongs to onExit.
func (s *Supervisor) onError(err error) {
	s.logger.Error("Child process failed", "error", err)
}

// onExit clears the handle and arms the restart timer.
func (s *Supervisor) onExit(status ExitStatus) {
	pid := 0
	if s.child != nil {
		pid = s.child.PID()
	}
	uptime := time.Duration(0)
	if !s.startedAt.IsZero() {
		uptime = time.Since(s.startedAt)
	}
	s.child, s.childExited, s.startedAt = nil, nil, time.Time{}

	if status.Err != nil && !status.SpawnFailed {
		s.onError(&SpawnError{Command: "wait", Err: status.Err})
	}

	now := time.Now()
	s.logger.Warn("Child process exited",
		"pid", pid,
		"exit_code", status.Code,
		"signal", status.Signal,
		"uptime", uptime.Round(time.Millisecond))
	s.recordExit(status, now)
	s.opts.Bus.Publish(events.ChildExitedEvent{
		PID:         pid,
		ExitCode:    status.Code,
		Signal:      status.Signal,
		SpawnFailed: status.SpawnFailed,
		Uptime:      uptime.Seconds(),
		Timestamp:   now,
	})

	if s.state == StateShuttingDown {
		return
	}

	delay := s.opts.Policy.delay()
	s.restarts++
	s.setState(StateRestartPending)
	s.timer = s.clock.NewTimer(delay)
	s.timerC = s.timer.C()

	s.logger.Info("Restarting child process", "delay", delay, "restarts", s.restarts)
	s.opts.Bus.Publish(events.RestartScheduledEvent{
		Delay:     delay,
		Restarts:  s.restarts,
		Timestamp: now,
	})
}

func (s *Supervisor) onRestartRequest() {
	if s.state != StateRunning || s.child == nil {
		s.logger.Debug("No child running, next launch uses current config", "state", s.state)
		return
	}
	s.logger.Info("Interrupting child for restart", "pid", s.child.PID())
	if err := s.child.Signal(syscall.SIGINT); err != nil {
		s.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// shutdown enters the terminal state: the pending timer is stopped and a live
// child gets SIGINT. It does not wait for the child.
func (s *Supervisor) shutdown(reason string) {
	if s.state == StateShuttingDown {
		return
	}
	s.logger.Info("Shutting down", "reason", reason)
	s.setState(StateShuttingDown)

	if s.timer != nil {
		s.timer.Stop()
		s.timer, s.timerC = nil, nil
	}

	if s.child != nil {
		s.logger.Info("Sending SIGINT to child process", "pid", s.child.PID())
		if err := s.child.Signal(syscall.SIGINT); err != nil {
			s.logger.Warn("Failed to send SIGINT", "error", err)
		}
		s.child, s.childExited = nil, nil
	}

	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Supervisor) setState(next State) {
	prev := s.state
	s.state = next

	s.statusMu.Lock()
	s.status.State = next
	s.status.Launches = s.launches
	s.status.Restarts = s.restarts
	s.status.PID = 0
	s.status.StartedAt = time.Time{}
	if s.child != nil {
		s.status.PID = s.child.PID()
		s.status.StartedAt = s.startedAt
	}
	s.statusMu.Unlock()

	if prev != next {
		s.logger.Debug("State changed", "from", prev, "to", next)
		s.opts.Bus.Publish(events.StateChangedEvent{
			From:      string(prev),
			To:        string(next),
			Timestamp: time.Now(),
		})
	}
}

func (s *Supervisor) recordExit(status ExitStatus, at time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.LastExit = &status
	s.status.LastExitAt = at
}

// String implements fmt.Stringer for log output.
func (s *Supervisor) String() string {
	st := s.Status()
	return fmt.Sprintf("supervisor(state=%s launches=%d restarts=%d)", st.State, st.Launches, st.Restarts)
}
