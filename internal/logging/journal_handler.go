package logging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// SyslogIdentifier tags every journal entry, so `journalctl -t livewatch` finds them.
const SyslogIdentifier = "livewatch"

// JournalHandler is a slog.Handler that writes structured entries to the
// systemd journal. Attributes become journal fields: "pid" is PID, a "child"
// group with "code" is CHILD_CODE.
type JournalHandler struct {
	level  slog.Leveler
	fields map[string]string // resolved WithAttrs fields
	prefix string            // open groups, joined with "_"
}

// NewJournalHandler creates a journal handler at the given level.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{
		level:  level,
		fields: map[string]string{"SYSLOG_IDENTIFIER": SyslogIdentifier},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends the record to the journal.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := maps.Clone(h.fields)
	r.Attrs(func(attr slog.Attr) bool {
		addAttrToFields(fields, h.prefix, attr)
		return true
	})

	if err := journal.Send(r.Message, priority(r.Level), fields); err != nil {
		fmt.Fprintf(os.Stderr, "journal send failed: %v\n", err)
		return err
	}
	return nil
}

// WithAttrs returns a handler that adds attrs to every entry.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := maps.Clone(h.fields)
	for _, attr := range attrs {
		addAttrToFields(fields, h.prefix, attr)
	}
	return &JournalHandler{level: h.level, fields: fields, prefix: h.prefix}
}

// WithGroup returns a handler that prefixes later fields with name.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &JournalHandler{level: h.level, fields: h.fields, prefix: joinKey(h.prefix, name)}
}

func priority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// addAttrToFields flattens attr into fields under prefix.
func addAttrToFields(fields map[string]string, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := joinKey(prefix, attr.Key)
	v := attr.Value
	switch v.Kind() {
	case slog.KindGroup:
		for _, a := range v.Group() {
			addAttrToFields(fields, key, a)
		}
		return
	case slog.KindInt64:
		fields[journalKey(key)] = strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		fields[journalKey(key)] = strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		fields[journalKey(key)] = strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		fields[journalKey(key)] = strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		fields[journalKey(key)] = v.Duration().String()
	case slog.KindTime:
		fields[journalKey(key)] = v.Time().Format(time.RFC3339Nano)
	default:
		fields[journalKey(key)] = v.String()
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

// journalKey maps a key to journald's field alphabet: upper case letters,
// digits and underscores, not starting with an underscore or digit.
func journalKey(key string) string {
	k := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
	k = strings.TrimLeft(k, "_0123456789")
	if k == "" {
		return "FIELD"
	}
	return k
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
