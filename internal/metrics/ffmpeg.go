package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smazurov/livewatch/internal/events"
)

var (
	ffmpegFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "fps",
		Help:      "Current FFmpeg encoding FPS",
	})

	ffmpegFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "frames",
		Help:      "Frames encoded by the current child",
	})

	ffmpegDroppedFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "dropped_frames",
		Help:      "Frames dropped by the current child",
	})

	ffmpegDuplicateFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "duplicate_frames",
		Help:      "Frames duplicated by the current child",
	})

	ffmpegSpeed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "processing_speed",
		Help:      "FFmpeg processing speed multiplier",
	})

	// Local cache for the status API.
	progressCache   *events.ProgressEvent
	progressCacheMu sync.RWMutex
)

// SetProgress records the latest progress report of the live child.
func SetProgress(p events.ProgressEvent) {
	ffmpegFPS.Set(p.FPS)
	ffmpegFrames.Set(float64(p.Frame))
	ffmpegDroppedFrames.Set(float64(p.DroppedFrames))
	ffmpegDuplicateFrames.Set(float64(p.DuplicateFrames))
	ffmpegSpeed.Set(p.Speed)

	progressCacheMu.Lock()
	progressCache = &p
	progressCacheMu.Unlock()
}

// ResetProgress zeroes the gauges once the child has gone.
func ResetProgress() {
	ffmpegFPS.Set(0)
	ffmpegFrames.Set(0)
	ffmpegDroppedFrames.Set(0)
	ffmpegDuplicateFrames.Set(0)
	ffmpegSpeed.Set(0)

	progressCacheMu.Lock()
	progressCache = nil
	progressCacheMu.Unlock()
}

// GetProgress returns a copy of the latest report, or nil if none since the last exit.
func GetProgress() *events.ProgressEvent {
	progressCacheMu.RLock()
	defer progressCacheMu.RUnlock()
	if progressCache == nil {
		return nil
	}
	dup := *progressCache
	return &dup
}
