package systemd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/livewatch/internal/events"
)

type recorder struct {
	mu     sync.Mutex
	states []string
	err    error
}

func (r *recorder) send(state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return r.err == nil, r.err
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.states)
}

func (r *recorder) count(state string) int {
	n := 0
	for _, s := range r.snapshot() {
		if s == state {
			n++
		}
	}
	return n
}

func newTestNotifier() (*Notifier, *recorder) {
	rec := &recorder{}
	n := NewNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.send = rec.send
	return n, rec
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestReadySentOnce(t *testing.T) {
	n, rec := newTestNotifier()
	n.Ready()
	n.Ready()

	if got := rec.count(daemon.SdNotifyReady); got != 1 {
		t.Errorf("READY sent %d times, want 1", got)
	}
}

func TestSubscribe(t *testing.T) {
	n, rec := newTestNotifier()
	bus := events.New()
	defer n.Subscribe(bus)()

	bus.Publish(events.StateChangedEvent{From: "starting", To: "running"})
	bus.Publish(events.ChildStartedEvent{PID: 7, Launch: 1})
	eventually(t, func() bool {
		return rec.count(daemon.SdNotifyReady) == 1 && rec.count("STATUS=ffmpeg running (pid 7, launch 1)") == 1
	})

	bus.Publish(events.RestartScheduledEvent{Delay: 5 * time.Second, Restarts: 1})
	eventually(t, func() bool { return rec.count("STATUS=ffmpeg exited, restart 1 in 5s") == 1 })

	bus.Publish(events.StateChangedEvent{From: "running", To: "shutting_down"})
	eventually(t, func() bool { return rec.count(daemon.SdNotifyStopping) == 1 })
}

func TestNotifyErrorIsLogged(t *testing.T) {
	n, rec := newTestNotifier()
	rec.err = errors.New("socket gone")

	// Must not panic or block
	n.Status("ffmpeg %s", "running")
	if got := rec.snapshot(); len(got) != 1 || !strings.HasPrefix(got[0], "STATUS=") {
		t.Errorf("states = %v", got)
	}
}

func TestRunWatchdog(t *testing.T) {
	n, rec := newTestNotifier()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.runWatchdog(ctx, 5*time.Millisecond)
		close(done)
	}()

	eventually(t, func() bool { return rec.count(daemon.SdNotifyWatchdog) >= 2 })
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog loop did not stop")
	}
}

func TestRunWatchdogDisabled(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	n, rec := newTestNotifier()

	n.RunWatchdog(context.Background())
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("expected no notifications, got %v", got)
	}
}
