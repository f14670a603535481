// Package systemd integrates livewatch with the service manager: readiness and
// status notifications, the watchdog keepalive and unit state over D-Bus.
package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/livewatch/internal/events"
)

// Notifier sends sd_notify messages. Outside systemd every call is a no-op.
type Notifier struct {
	logger    *slog.Logger
	send      func(state string) (bool, error)
	readyOnce sync.Once
}

// NewNotifier creates a notifier writing to $NOTIFY_SOCKET.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger: logger,
		send: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
	}
}

func (n *Notifier) notify(state string) {
	sent, err := n.send(state)
	switch {
	case err != nil:
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
	case sent:
		n.logger.Debug("sd_notify sent", "state", state)
	}
}

// Ready reports startup complete. Only the first call is sent.
func (n *Notifier) Ready() {
	n.readyOnce.Do(func() { n.notify(daemon.SdNotifyReady) })
}

// Stopping reports that shutdown has begun.
func (n *Notifier) Stopping() {
	n.notify(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) {
	n.notify("STATUS=" + fmt.Sprintf(format, args...))
}

// Subscribe mirrors supervisor lifecycle events into sd_notify messages.
// READY=1 goes out once the first launch attempt has resolved.
func (n *Notifier) Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.StateChangedEvent) {
			switch e.To {
			case "running", "restart_pending":
				n.Ready()
			case "shutting_down":
				n.Status("shutting down")
				n.Stopping()
			}
		}),
		bus.Subscribe(func(e events.ChildStartedEvent) {
			n.Status("ffmpeg running (pid %d, launch %d)", e.PID, e.Launch)
		}),
		bus.Subscribe(func(e events.RestartScheduledEvent) {
			n.Status("ffmpeg exited, restart %d in %s", e.Restarts, e.Delay)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// RunWatchdog pings the service watchdog at half of WatchdogSec until ctx is
// done. It returns immediately when the unit has no watchdog configured.
func (n *Notifier) RunWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Invalid watchdog configuration", "error", err)
		return
	}
	if interval == 0 {
		return
	}
	n.runWatchdog(ctx, interval/2)
}

func (n *Notifier) runWatchdog(ctx context.Context, every time.Duration) {
	n.logger.Info("Systemd watchdog enabled", "interval", every)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.notify(daemon.SdNotifyWatchdog)
		}
	}
}
