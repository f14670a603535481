// Package collectors gathers FFmpeg runtime data for the metrics package.
package collectors

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/livewatch/internal/events"
)

// ProgressCollector receives FFmpeg "-progress" reports on a Unix socket and
// publishes them as events.ProgressEvent. Every child launch reconnects.
type ProgressCollector struct {
	logger     *slog.Logger
	socketPath string
	bus        *events.Bus
	listener   net.Listener
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// NewProgressCollector creates a collector listening on socketPath.
func NewProgressCollector(socketPath string, bus *events.Bus, logger *slog.Logger) *ProgressCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressCollector{
		logger:     logger.With("component", "progress_collector"),
		socketPath: socketPath,
		bus:        bus,
	}
}

// URL returns the value to pass to FFmpeg's -progress option.
func (f *ProgressCollector) URL() string {
	return "unix://" + f.socketPath
}

// Start creates the socket and begins accepting connections.
func (f *ProgressCollector) Start(ctx context.Context) error {
	if err := os.Remove(f.socketPath); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("Failed to clean up old socket file", "error", err)
	}

	listener, err := net.Listen("unix", f.socketPath)
	if err != nil {
		return err
	}
	f.listener = listener

	ctx, f.cancel = context.WithCancel(ctx)
	f.logger.Info("Listening for FFmpeg progress", "socket", f.socketPath)

	f.wg.Add(2)
	go func() {
		defer f.wg.Done()
		<-ctx.Done()
		listener.Close()
	}()
	go func() {
		defer f.wg.Done()
		f.acceptLoop(ctx)
	}()
	return nil
}

// Stop closes the socket and waits for the accept loop and open connections.
func (f *ProgressCollector) Stop() {
	f.stopOnce.Do(func() {
		if f.cancel != nil {
			f.cancel()
		}
		f.wg.Wait()
		os.Remove(f.socketPath)
	})
}

func (f *ProgressCollector) acceptLoop(ctx context.Context) {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			f.logger.Warn("Error accepting connection", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.handleConnection(ctx, conn)
		}()
	}
}

func (f *ProgressCollector) handleConnection(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	// Unblock the scanner on shutdown
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	report := make(map[string]string)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		report[key] = strings.TrimSpace(value)

		// "progress" terminates each block
		if key == "progress" {
			f.bus.Publish(ParseProgress(report))
			report = make(map[string]string)
		}
	}
}

// ParseProgress converts one -progress block into an event. Fields FFmpeg
// reports as "N/A" are left zero.
func ParseProgress(data map[string]string) events.ProgressEvent {
	ev := events.ProgressEvent{
		Bitrate:   data["bitrate"],
		Ended:     data["progress"] == "end",
		Timestamp: time.Now(),
	}
	if v, err := strconv.ParseInt(data["frame"], 10, 64); err == nil {
		ev.Frame = v
	}
	if v, err := strconv.ParseFloat(data["fps"], 64); err == nil {
		ev.FPS = v
	}
	if v, err := strconv.ParseInt(data["drop_frames"], 10, 64); err == nil {
		ev.DroppedFrames = v
	}
	if v, err := strconv.ParseInt(data["dup_frames"], 10, 64); err == nil {
		ev.DuplicateFrames = v
	}
	speed := strings.TrimSpace(strings.TrimSuffix(data["speed"], "x"))
	if v, err := strconv.ParseFloat(speed, 64); err == nil {
		ev.Speed = v
	}
	return ev
}
