package ffmpeg

import (
	"log/slog"
	"strings"
)

// levels maps FFmpeg's "-loglevel level+..." tags to slog levels.
var levels = map[string]slog.Level{
	"quiet":   slog.LevelError,
	"panic":   slog.LevelError,
	"fatal":   slog.LevelError,
	"error":   slog.LevelError,
	"warning": slog.LevelWarn,
	"info":    slog.LevelInfo,
	"verbose": slog.LevelDebug,
	"debug":   slog.LevelDebug,
	"trace":   slog.LevelDebug,
}

// ParseLogLevel reads one stderr line written with "-loglevel level+<lvl>".
// Lines look like "[error] msg" or "[flv @ 0x55d1] [error] msg"; the level tag
// is removed and a component prefix kept. Periodic "frame=" statistics are
// demoted to debug. Untagged lines are info.
func ParseLogLevel(line string) (slog.Level, string) {
	if strings.HasPrefix(line, "frame=") || strings.HasPrefix(line, "size=") {
		return slog.LevelDebug, line
	}

	tag, rest, ok := bracketed(line)
	if !ok {
		return slog.LevelInfo, line
	}
	if level, known := levels[tag]; known {
		return level, rest
	}

	// Component prefix, the level tag follows it
	if next, msg, found := bracketed(rest); found {
		if level, known := levels[next]; known {
			return level, "[" + tag + "] " + msg
		}
	}
	return slog.LevelInfo, line
}

// bracketed splits "[tag] rest" into its parts.
func bracketed(s string) (tag, rest string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", "", false
	}
	tag, rest, ok = strings.Cut(s[1:], "] ")
	return tag, rest, ok
}
