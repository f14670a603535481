package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/livewatch/internal/api/models"
	"github.com/smazurov/livewatch/internal/events"
	"github.com/smazurov/livewatch/internal/process"
)

type fakeSupervisor struct {
	mu       sync.Mutex
	status   process.Status
	restarts int
	err      error
}

func (f *fakeSupervisor) Status() process.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSupervisor) RequestRestart() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.restarts++
	return nil
}

func (f *fakeSupervisor) restartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restarts
}

func (f *fakeSupervisor) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeUnits struct{}

func (fakeUnits) UnitStatus(_ context.Context, unit string) (string, string, error) {
	if unit == "missing.service" {
		return "", "", errors.New("unit not found")
	}
	return "active", "running", nil
}

func newTestServer(t *testing.T, opts *Options) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ts := httptest.NewServer(NewServer(opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		state      process.State
		wantCode   int
		wantStatus string
	}{
		{process.StateRunning, http.StatusOK, "ok"},
		{process.StateRestartPending, http.StatusOK, "degraded"},
		{process.StateShuttingDown, http.StatusServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			sup := &fakeSupervisor{status: process.Status{State: tt.state}}
			ts := newTestServer(t, &Options{Supervisor: sup})

			resp := get(t, ts.URL+"/api/health", nil)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status code = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if tt.wantStatus == "" {
				return
			}
			var body models.HealthData
			decode(t, resp, &body)
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	sup := &fakeSupervisor{status: process.Status{
		State:     process.StateRunning,
		PID:       4242,
		Launches:  3,
		Restarts:  2,
		StartedAt: started,
		LastExit: &process.ExitStatus{
			Code: -1,
			Err:  &process.SpawnError{Command: "ffmpeg", Err: errors.New("not found")},
		},
		LastExitAt: started.Add(-5 * time.Second),
	}}
	ts := newTestServer(t, &Options{Supervisor: sup})

	resp := get(t, ts.URL+"/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}

	var body models.StatusData
	decode(t, resp, &body)
	if body.State != "running" || body.PID != 4242 || body.Launches != 3 || body.Restarts != 2 {
		t.Errorf("unexpected status: %+v", body)
	}
	if body.UptimeSeconds < 59 {
		t.Errorf("uptime = %v, want about 60s", body.UptimeSeconds)
	}
	if body.LastExit == nil || body.LastExit.Code != -1 || !strings.Contains(body.LastExit.Error, "not found") {
		t.Errorf("last exit = %+v", body.LastExit)
	}
}

func TestStatusToAPIWithoutChild(t *testing.T) {
	data := statusToAPI(process.Status{State: process.StateRestartPending, Launches: 1}, time.Now())
	if data.StartedAt != nil || data.UptimeSeconds != 0 || data.Progress != nil {
		t.Errorf("no child should mean no start time, uptime or progress: %+v", data)
	}
}

func TestRestart(t *testing.T) {
	sup := &fakeSupervisor{status: process.Status{State: process.StateRunning}}
	ts := newTestServer(t, &Options{Supervisor: sup})

	resp, err := http.Post(ts.URL+"/api/restart", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status code = %d, want 202", resp.StatusCode)
	}
	if got := sup.restartCount(); got != 1 {
		t.Errorf("RequestRestart called %d times, want 1", got)
	}

	sup.fail(process.ErrShuttingDown)
	resp, err = http.Post(ts.URL+"/api/restart", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status code after shutdown = %d, want 409", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	sup := &fakeSupervisor{status: process.Status{State: process.StateRunning}}
	ts := newTestServer(t, &Options{Supervisor: sup, AuthUsername: "admin", AuthPassword: "secret"})

	if resp := get(t, ts.URL+"/api/health", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("health without auth = %d, want 200", resp.StatusCode)
	}

	resp := get(t, ts.URL+"/api/status", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without auth = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	bad := http.Header{"Authorization": {"Basic " + base64.StdEncoding.EncodeToString([]byte("admin:wrong"))}}
	if resp := get(t, ts.URL+"/api/status", bad); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status with wrong password = %d, want 401", resp.StatusCode)
	}

	good := http.Header{"Authorization": {"Basic " + base64.StdEncoding.EncodeToString([]byte("admin:secret"))}}
	if resp := get(t, ts.URL+"/api/status", good); resp.StatusCode != http.StatusOK {
		t.Errorf("status with auth = %d, want 200", resp.StatusCode)
	}

	query := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	if resp := get(t, ts.URL+"/api/status?auth="+query, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("status with query auth = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("livewatch_supervisor_child_up 1\n"))
	})
	ts := newTestServer(t, &Options{Supervisor: &fakeSupervisor{}, PrometheusHandler: metricsHandler})

	resp := get(t, ts.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
}

func TestSystemdStatus(t *testing.T) {
	ts := newTestServer(t, &Options{
		Supervisor:  &fakeSupervisor{},
		Systemd:     fakeUnits{},
		SystemdUnit: "livewatch.service",
	})

	resp := get(t, ts.URL+"/api/systemd/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	var body models.SystemdUnitStatus
	decode(t, resp, &body)
	if body.Unit != "livewatch.service" || body.Active != "active" || body.SubState != "running" {
		t.Errorf("unexpected unit status: %+v", body)
	}
}

func TestSystemdRouteDisabledWithoutUnit(t *testing.T) {
	ts := newTestServer(t, &Options{Supervisor: &fakeSupervisor{}, Systemd: fakeUnits{}})

	if resp := get(t, ts.URL+"/api/systemd/status", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &Options{Supervisor: &fakeSupervisor{}})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/status", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status code = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestUnknownPaths(t *testing.T) {
	ts := newTestServer(t, &Options{Supervisor: &fakeSupervisor{}})

	if resp := get(t, ts.URL+"/api/nope", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET status code = %d, want 404", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/nope", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("OPTIONS status code = %d, want 204", resp.StatusCode)
	}
}

func TestRequestLogOmitsAuthQuery(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ts := newTestServer(t, &Options{Supervisor: &fakeSupervisor{}, Logger: logger})

	get(t, ts.URL+"/api/version?auth=YWRtaW46c2VjcmV0&verbose=1", nil)

	// The request is logged after the response is written
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "HTTP request completed") && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	out := buf.String()
	if !strings.Contains(out, `"query":"verbose=1"`) {
		t.Errorf("request log missing query: %s", out)
	}
	if strings.Contains(out, "YWRtaW46c2VjcmV0") {
		t.Errorf("request log leaked credentials: %s", out)
	}
}

// syncBuffer is a string builder safe for use from a server goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCORSOriginOption(t *testing.T) {
	ts := newTestServer(t, &Options{Supervisor: &fakeSupervisor{}, CORSOrigin: "https://dash.example"})

	resp := get(t, ts.URL+"/api/version", nil)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestLoggableQueryDropsCredentials(t *testing.T) {
	q, _ := url.ParseQuery("auth=YWRtaW46c2VjcmV0&verbose=1")
	if got := loggableQuery(q); got != "verbose=1" {
		t.Errorf("loggableQuery() = %q, want verbose=1", got)
	}
}

func TestEventsStream(t *testing.T) {
	bus := events.New()
	sup := &fakeSupervisor{status: process.Status{State: process.StateRunning}}
	ts := newTestServer(t, &Options{Supervisor: sup, EventBus: bus})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	nextData := func() string {
		t.Helper()
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatal("stream closed")
				}
				if data, found := strings.CutPrefix(line, "data: "); found {
					return data
				}
			case <-ctx.Done():
				t.Fatal("timeout waiting for SSE data")
			}
		}
	}

	var initial events.StateChangedEvent
	if err := json.Unmarshal([]byte(nextData()), &initial); err != nil {
		t.Fatal(err)
	}
	if initial.To != "running" {
		t.Errorf("initial state = %q, want running", initial.To)
	}

	// The subscription is live once the initial event has been written
	bus.Publish(events.ChildExitedEvent{PID: 9, ExitCode: 1})

	var exited events.ChildExitedEvent
	if err := json.Unmarshal([]byte(nextData()), &exited); err != nil {
		t.Fatal(err)
	}
	if exited.PID != 9 || exited.ExitCode != 1 {
		t.Errorf("exited event = %+v", exited)
	}
}

func TestNewServerPanicsWithoutSupervisor(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewServer(&Options{})
}
