package api

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// requestLogger logs each request at a level derived from its outcome.
// Event streams are debug noise, 5xx are errors and 4xx warnings.
func (s *Server) requestLogger(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	method := ctx.Method()
	u := ctx.URL()
	path := u.Path

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if query := loggableQuery(u.Query()); query != "" {
		attrs = append(attrs, slog.String("query", query))
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}

	next(ctx)

	status := ctx.Status()
	attrs = append(attrs, slog.Int("status", status), slog.Duration("duration", time.Since(start)))

	level := slog.LevelInfo
	switch {
	case strings.HasPrefix(path, "/api/events"):
		level = slog.LevelDebug
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}

// loggableQuery encodes the query without the auth parameter, which carries credentials.
func loggableQuery(q url.Values) string {
	q.Del("auth")
	return q.Encode()
}
