// Package metrics provides Prometheus metrics for the supervisor and the FFmpeg child.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smazurov/livewatch/internal/events"
	"github.com/smazurov/livewatch/internal/process"
)

const namespace = "livewatch"

// Exit reasons used as the "reason" label of exits_total.
const (
	ReasonExit        = "exit"
	ReasonSignal      = "signal"
	ReasonSpawnFailed = "spawn_failed"
)

var (
	supervisorState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "state",
		Help:      "Current supervisor state (1 for the active state)",
	}, []string{"state"})

	childUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "child_up",
		Help:      "Whether an FFmpeg child is running",
	})

	launchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "launches_total",
		Help:      "Successful child launches",
	})

	restartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "restarts_total",
		Help:      "Restarts scheduled after a child exit",
	})

	exitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "exits_total",
		Help:      "Child exits by reason",
	}, []string{"reason"})

	lastExitCode = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "last_exit_code",
		Help:      "Exit code of the most recent child (-1 for signal or spawn failure)",
	})

	childUptime = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "child_uptime_seconds",
		Help:      "How long each child ran before exiting",
		Buckets:   []float64{1, 5, 30, 60, 300, 900, 3600, 14400, 86400},
	})
)

var states = []process.State{
	process.StateIdle,
	process.StateStarting,
	process.StateRunning,
	process.StateRestartPending,
	process.StateShuttingDown,
}

// SetState marks state as the active supervisor state.
func SetState(state string) {
	for _, s := range states {
		v := 0.0
		if string(s) == state {
			v = 1
		}
		supervisorState.WithLabelValues(string(s)).Set(v)
	}
}

// RecordLaunch counts a successful spawn.
func RecordLaunch() {
	launchesTotal.Inc()
	childUp.Set(1)
}

// RecordExit counts a child exit and observes its uptime.
func RecordExit(e events.ChildExitedEvent) {
	childUp.Set(0)
	lastExitCode.Set(float64(e.ExitCode))

	reason := ReasonExit
	switch {
	case e.SpawnFailed:
		reason = ReasonSpawnFailed
	case e.Signal != "":
		reason = ReasonSignal
	}
	exitsTotal.WithLabelValues(reason).Inc()

	if !e.SpawnFailed {
		childUptime.Observe(e.Uptime)
	}
}

// RecordRestart counts a scheduled restart.
func RecordRestart() {
	restartsTotal.Inc()
}

// Subscribe feeds the supervisor and progress metrics from bus events.
// The returned function unsubscribes all handlers.
func Subscribe(bus *events.Bus) func() {
	SetState(string(process.StateIdle))

	unsubs := []func(){
		bus.Subscribe(func(e events.StateChangedEvent) { SetState(e.To) }),
		bus.Subscribe(func(events.ChildStartedEvent) { RecordLaunch() }),
		bus.Subscribe(func(e events.ChildExitedEvent) {
			RecordExit(e)
			ResetProgress()
		}),
		bus.Subscribe(func(events.RestartScheduledEvent) { RecordRestart() }),
		bus.Subscribe(func(e events.ProgressEvent) { SetProgress(e) }),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
