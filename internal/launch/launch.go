package launch

import (
	"strings"

	"github.com/smazurov/livewatch/internal/ffmpeg"
)

// DefaultIngestURL is the YouTube primary RTMP ingest.
const DefaultIngestURL = "rtmp://a.rtmp.youtube.com/live2"

// Config is the process-wide input to Build.
type Config struct {
	Command   string // encoder executable, default ffmpeg
	StreamKey string
	IngestURL string
	Input     string
	Encoder   ffmpeg.Params
	Env       []string
}

// Build produces the Spec for the next launch.
func Build(cfg Config) (Spec, error) {
	if cfg.StreamKey == "" {
		return Spec{}, missing("stream_key")
	}
	if strings.TrimSpace(cfg.IngestURL) == "" {
		return Spec{}, missing("ingest_url")
	}
	if cfg.Input == "" {
		return Spec{}, missing("input")
	}

	command := cfg.Command
	if command == "" {
		command = ffmpeg.Binary
	}

	destination := strings.TrimRight(cfg.IngestURL, "/") + "/" + cfg.StreamKey

	params := cfg.Encoder
	params.Input = cfg.Input
	params.OutputURL = destination

	return Spec{
		command:     command,
		args:        ffmpeg.BuildArgs(&params),
		destination: destination,
		input:       cfg.Input,
		env:         append([]string(nil), cfg.Env...),
		secret:      cfg.StreamKey,
	}, nil
}
