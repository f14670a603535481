package process

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"github.com/smazurov/livewatch/internal/launch"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Launcher starts one child process from a launch.Spec.
type Launcher interface {
	Launch(spec launch.Spec) (Child, error)
}

// Child is the handle to a started process.
type Child interface {
	PID() int
	// Signal delivers sig to the process without waiting.
	Signal(sig os.Signal) error
	// Exited yields exactly one ExitStatus when the process has ended.
	Exited() <-chan ExitStatus
}

// LogParser parses a stderr line into a log level and message.
// Used to extract structured log info from encoder stderr.
type LogParser func(line string) (slog.Level, string)

// StderrMode selects what happens to the child's stderr.
type StderrMode string

// Stderr modes.
const (
	StderrDiscard StderrMode = "discard"
	StderrLog     StderrMode = "log"
	StderrFile    StderrMode = "file"
)

// Default rotation settings for StderrFile.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// ExecOptions configures an ExecLauncher.
type ExecOptions struct {
	Stderr StderrMode

	// StderrLog settings. OutputLogger receives each stderr line; LogParser
	// extracts the level (nil logs everything at info).
	OutputLogger *slog.Logger
	LogParser    LogParser

	// StderrFile settings, lumberjack semantics.
	StderrPath string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Logger for launcher diagnostics. If nil, uses slog.Default().
	Logger *slog.Logger
}

// ExecLauncher starts children with os/exec.
type ExecLauncher struct {
	opts   ExecOptions
	logger *slog.Logger
	file   *lj.Logger
}

// NewExecLauncher creates a launcher. Unknown stderr modes discard.
func NewExecLauncher(opts ExecOptions) *ExecLauncher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.OutputLogger == nil {
		opts.OutputLogger = logger
	}

	l := &ExecLauncher{opts: opts, logger: logger}
	if opts.Stderr == StderrFile && opts.StderrPath != "" {
		l.file = &lj.Logger{
			Filename:   opts.StderrPath,
			MaxSize:    valOr(opts.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(opts.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(opts.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   opts.Compress,
		}
	}
	return l
}

// Launch starts the process described by spec.
func (l *ExecLauncher) Launch(spec launch.Spec) (Child, error) {
	cmd := exec.Command(spec.Command(), spec.Args()...)
	// Own process group: a terminal Ctrl-C reaches only the supervisor, which forwards SIGINT
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if env := spec.Env(); len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	// nil Stdin/Stdout means /dev/null
	var stderr io.ReadCloser
	switch {
	case l.opts.Stderr == StderrLog:
		pipe, err := cmd.StderrPipe()
		if err != nil {
			return nil, err
		}
		stderr = pipe
	case l.file != nil:
		cmd.Stderr = l.file
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	c := &execChild{cmd: cmd, exited: make(chan ExitStatus, 1)}
	go c.wait(stderr, l.streamOutput)
	return c, nil
}

// Close releases the stderr log file, if any.
func (l *ExecLauncher) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// streamOutput logs each stderr line through OutputLogger at the parsed level.
func (l *ExecLauncher) streamOutput(reader io.Reader) {
	scanner := bufio.NewScanner(reader)
	logger := l.opts.OutputLogger

	for scanner.Scan() {
		line := scanner.Text()

		level, msg := slog.LevelInfo, line
		if l.opts.LogParser != nil {
			level, msg = l.opts.LogParser(line)
		}
		logger.Log(context.Background(), level, msg)
	}

	if err := scanner.Err(); err != nil {
		l.logger.Warn("Error reading child stderr", "error", err)
	}
}

type execChild struct {
	cmd    *exec.Cmd
	exited chan ExitStatus
}

func (c *execChild) PID() int { return c.cmd.Process.Pid }

func (c *execChild) Signal(sig os.Signal) error {
	err := c.cmd.Process.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (c *execChild) Exited() <-chan ExitStatus { return c.exited }

// wait drains stderr before calling Wait, as os/exec requires for pipes.
func (c *execChild) wait(stderr io.Reader, stream func(io.Reader)) {
	if stderr != nil {
		stream(stderr)
	}
	c.exited <- exitStatusFromError(c.cmd.Wait())
}

// exitStatusFromError converts the result of exec.Cmd.Wait.
func exitStatusFromError(err error) ExitStatus {
	if err == nil {
		return ExitStatus{Code: 0}
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ExitStatus{Code: -1, Err: err}
	}

	status := ExitStatus{Code: exitErr.ExitCode()}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signal = ws.Signal().String()
	}
	return status
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
