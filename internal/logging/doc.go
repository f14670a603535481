// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// Loggers are plain *slog.Logger values tagged with a "module" attribute.
// Output is routed automatically:
//   - to stdout (or stderr, see Config.Output) when a terminal, pipe or file is attached
//   - to the systemd journal when journald is reachable
//   - to both through a MultiHandler when both are available
//
// # Usage
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"supervisor": "debug",
//			"ffmpeg":     "warn",
//		},
//	})
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Child started", "pid", pid)
//
// Loggers obtained before Initialize are cached and pick up the configured
// level afterwards, since each module owns a slog.LevelVar.
//
// # Viewing Logs
//
//	journalctl -t livewatch -f
//	journalctl -t livewatch MODULE=ffmpeg
//	journalctl -t livewatch -p err
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	ffmpeg = "warn"
package logging
