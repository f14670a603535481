package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/smazurov/livewatch/internal/api"
	"github.com/smazurov/livewatch/internal/config"
	"github.com/smazurov/livewatch/internal/events"
	"github.com/smazurov/livewatch/internal/ffmpeg"
	"github.com/smazurov/livewatch/internal/launch"
	"github.com/smazurov/livewatch/internal/logging"
	"github.com/smazurov/livewatch/internal/metrics"
	"github.com/smazurov/livewatch/internal/metrics/collectors"
	"github.com/smazurov/livewatch/internal/metrics/exporters"
	"github.com/smazurov/livewatch/internal/process"
	"github.com/smazurov/livewatch/internal/systemd"
	"github.com/spf13/cobra"
)

// run wires every component and blocks in the supervisor loop until a
// termination signal arrives or ctx is cancelled.
func run(ctx context.Context, c *cobra.Command, opts *Options) error {
	logging.Initialize(config.LoggingConfig(opts.LoggingLevel, opts.LoggingFormat, opts.LoggingOutput, opts.Config))
	logger := logging.GetLogger("main")

	key, err := opts.streamKey()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := events.New()
	defer metrics.Subscribe(bus)()

	notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
	defer notifier.Subscribe(bus)()
	go notifier.RunWatchdog(ctx)

	progressURL := ""
	if opts.ProgressSocket != "" {
		collector := collectors.NewProgressCollector(opts.ProgressSocket, bus, logging.GetLogger("metrics"))
		if startErr := collector.Start(ctx); startErr != nil {
			logger.Warn("Progress reporting disabled", "socket", opts.ProgressSocket, "error", startErr)
		} else {
			defer collector.Stop()
			progressURL = collector.URL()
		}
	}

	// Fail before anything is spawned or served
	launchCfg := opts.LaunchConfig(key, progressURL)
	spec, err := launch.Build(launchCfg)
	if err != nil {
		return err
	}
	logger.Info("Starting livewatch", "command", spec.String(), "restart_delay", opts.RestartDelay)

	source := launch.NewSource(launchCfg)

	execOpts := opts.ExecOptions()
	execOpts.OutputLogger = logging.GetLogger("ffmpeg")
	execOpts.LogParser = ffmpeg.ParseLogLevel
	execOpts.Logger = logging.GetLogger("supervisor")
	launcher := process.NewExecLauncher(execOpts)
	defer launcher.Close()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	sup := process.New(&process.Options{
		Provider: source,
		Launcher: launcher,
		Policy:   process.RestartPolicy{Delay: opts.RestartDelay},
		Signals:  signals,
		Bus:      bus,
		Logger:   logging.GetLogger("supervisor"),
	})

	if opts.ServerAddr != "" {
		stop, serveErr := serveAPI(ctx, opts, sup, bus)
		if serveErr != nil {
			return serveErr
		}
		defer stop()
	}

	if opts.WatchConfig && opts.Config != "" {
		stop, watchErr := watchConfig(c, opts, key, progressURL, source, sup)
		if watchErr != nil {
			logger.Warn("Config watching disabled", "path", opts.Config, "error", watchErr)
		} else {
			defer stop()
		}
	}

	return sup.Run(ctx)
}

// serveAPI starts the status API and returns a function that closes it.
func serveAPI(ctx context.Context, opts *Options, sup *process.Supervisor, bus *events.Bus) (func(), error) {
	logger := logging.GetLogger("api")

	apiOpts := &api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		CORSOrigin:        opts.CORSOrigin,
		Supervisor:        sup,
		EventBus:          bus,
		PrometheusHandler: exporters.HTTPHandler(),
	}

	var manager *systemd.Manager
	if opts.SystemdUnit != "" {
		m, err := systemd.NewManager(ctx, opts.SystemdUserBus)
		if err != nil {
			logger.Warn("Systemd status unavailable", "error", err)
		} else {
			manager = m
			apiOpts.Systemd = m
			apiOpts.SystemdUnit = opts.SystemdUnit
		}
	}

	listener, err := net.Listen("tcp", opts.ServerAddr)
	if err != nil {
		if manager != nil {
			manager.Close()
		}
		return nil, err
	}

	server := api.NewServer(apiOpts)
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", serveErr)
		}
	}()

	return func() {
		if stopErr := server.Stop(); stopErr != nil {
			logger.Error("Error stopping HTTP server", "error", stopErr)
		}
		if manager != nil {
			manager.Close()
		}
	}, nil
}

// watchConfig reloads the options when the config file changes and restarts
// the encoder if the launch configuration differs. Flags given on the command
// line keep precedence over the file.
func watchConfig(c *cobra.Command, opts *Options, key, progressURL string, source *launch.Source, sup *process.Supervisor) (func(), error) {
	logger := logging.GetLogger("config")
	base := *opts

	loader := func(path string) (Options, error) {
		next := base
		next.Config = path
		err := config.LoadConfig(&next, c)
		return next, err
	}

	watcher := config.NewConfigWatcher(opts.Config, loader, logger)
	watcher.OnReload(func(next Options) {
		applyReload(next.LaunchConfig(key, progressURL), source, sup, logger)
	})
	if err := watcher.Start(); err != nil {
		return nil, err
	}

	return func() {
		if err := watcher.Stop(); err != nil {
			logger.Warn("Error stopping config watcher", "error", err)
		}
	}, nil
}

// restarter is the part of process.Supervisor a reload needs.
type restarter interface {
	RequestRestart() error
}

// applyReload swaps in cfg and restarts the encoder when it changed. An
// invalid configuration is rejected so the running encoder keeps streaming.
func applyReload(cfg launch.Config, source *launch.Source, sup restarter, logger *slog.Logger) bool {
	if _, err := launch.Build(cfg); err != nil {
		logger.Error("Reloaded config rejected, keeping the current launch configuration", "error", err)
		return false
	}
	if !source.Update(cfg) {
		logger.Debug("Config reloaded, launch configuration unchanged")
		return false
	}
	logger.Info("Launch configuration changed, restarting encoder")
	if err := sup.RequestRestart(); err != nil && !errors.Is(err, process.ErrShuttingDown) {
		logger.Warn("Restart request failed", "error", err)
	}
	return true
}
