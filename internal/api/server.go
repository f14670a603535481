// Package api serves the livewatch status API with Huma v2.
package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/livewatch/internal/api/models"
	"github.com/smazurov/livewatch/internal/events"
	"github.com/smazurov/livewatch/internal/logging"
	"github.com/smazurov/livewatch/internal/process"
	"github.com/smazurov/livewatch/internal/version"
)

// Supervisor is the part of process.Supervisor the API needs.
type Supervisor interface {
	Status() process.Status
	RequestRestart() error
}

// UnitStatusProvider reports the state of a systemd unit.
type UnitStatusProvider interface {
	UnitStatus(ctx context.Context, unit string) (active, sub string, err error)
}

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Supervisor        Supervisor
	EventBus          *events.Bus
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
	Systemd           UnitStatusProvider
	SystemdUnit       string
	CORSOrigin        string       // Allowed origin, "*" when empty
	Logger            *slog.Logger // Defaults to the "api" module logger
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	handler    http.Handler
	httpServer *http.Server
	options    *Options
	logger     *slog.Logger
}

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		credentials, ok := basicCredentials(ctx)
		if !ok {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="livewatch"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Authentication required")
			return
		}

		user, pass, found := strings.Cut(credentials, ":")
		if !found || user != username || pass != password {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="livewatch"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

// basicCredentials decodes "user:pass" from the Authorization header, or from
// the auth query parameter that EventSource clients use.
func basicCredentials(ctx huma.Context) (string, bool) {
	encoded := ""
	if header := ctx.Header("Authorization"); header != "" {
		const prefix = "Basic "
		if !strings.HasPrefix(header, prefix) {
			return "", false
		}
		encoded = header[len(prefix):]
	} else {
		encoded = ctx.Query("auth")
	}
	if encoded == "" {
		return "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	if opts == nil || opts.Supervisor == nil {
		panic("api.Options with Supervisor is required")
	}

	mux := http.NewServeMux()

	cors := newCORSHeaders(opts.CORSOrigin)

	config := huma.DefaultConfig("livewatch API", version.String())
	config.Info.Description = "Status and control of the FFmpeg stream supervisor"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("api")
	}
	server := &Server{
		api:     api,
		handler: cors.preflight(mux),
		options: opts,
		logger:  logger,
	}
	server.httpServer = &http.Server{
		Handler:           server.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	api.UseMiddleware(cors.middleware)
	api.UseMiddleware(server.requestLogger)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Prometheus scrapes without auth
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve serves on listener until Stop is called. It returns
// http.ErrServerClosed after a clean stop.
func (s *Server) Serve(listener net.Listener) error {
	s.logger.Info("Starting API server", "addr", listener.Addr().String())
	s.logger.Info("OpenAPI documentation available", "url", "http://"+listener.Addr().String()+"/docs")

	return s.httpServer.Serve(listener)
}

// Stop closes the server without waiting for open connections, SSE streams included.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	return s.httpServer.Close()
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Healthy while the supervisor keeps a child running or is about to restart one",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
		Errors:      []int{503},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return s.health()
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerStatusRoutes()
	s.registerSSERoutes()
	s.registerSystemdRoutes()
}

func (s *Server) health() (*models.HealthResponse, error) {
	st := s.options.Supervisor.Status()
	switch st.State {
	case process.StateRunning:
		return &models.HealthResponse{Body: models.HealthData{Status: "ok", Message: "ffmpeg running"}}, nil
	case process.StateIdle, process.StateStarting, process.StateRestartPending:
		return &models.HealthResponse{Body: models.HealthData{Status: "degraded", Message: "ffmpeg " + st.State.String()}}, nil
	default:
		return nil, huma.Error503ServiceUnavailable("supervisor is shutting down")
	}
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
