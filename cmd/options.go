package cmd

import (
	"time"

	"github.com/smazurov/livewatch/internal/ffmpeg"
	"github.com/smazurov/livewatch/internal/launch"
	"github.com/smazurov/livewatch/internal/process"
	"github.com/spf13/pflag"
)

// Options for the CLI - flat structure with toml mapping.
// Flag names are derived from field names: IngestURL -> --ingest-url.
type Options struct {
	Config  string
	EnvFile string

	// Stream settings
	StreamKeyEnv string   `toml:"stream.key_env" env:"STREAM_KEY_ENV"`
	IngestURL    string   `toml:"stream.ingest_url" env:"INGEST_URL"`
	Input        string   `toml:"stream.input" env:"INPUT"`
	ExtraEnv     []string `toml:"stream.env" env:"EXTRA_ENV"`

	// Encoder settings
	Command         string `toml:"encoder.command" env:"ENCODER_COMMAND"`
	EncoderProfile  string `toml:"encoder.profile" env:"ENCODER_PROFILE"`
	VideoBitrate    string `toml:"encoder.video_bitrate" env:"VIDEO_BITRATE"`
	AudioBitrate    string `toml:"encoder.audio_bitrate" env:"AUDIO_BITRATE"`
	Preset          string `toml:"encoder.preset" env:"PRESET"`
	EncoderLogLevel string `toml:"encoder.log_level" env:"ENCODER_LOG_LEVEL"`

	// Supervisor settings
	RestartDelay     time.Duration `toml:"supervisor.restart_delay" env:"RESTART_DELAY"`
	StderrMode       string        `toml:"supervisor.stderr" env:"STDERR_MODE"`
	StderrPath       string        `toml:"supervisor.stderr_path" env:"STDERR_PATH"`
	StderrMaxSizeMB  int           `toml:"supervisor.stderr_max_size_mb" env:"STDERR_MAX_SIZE_MB"`
	StderrMaxBackups int           `toml:"supervisor.stderr_max_backups" env:"STDERR_MAX_BACKUPS"`
	WatchConfig      bool          `toml:"supervisor.watch_config" env:"WATCH_CONFIG"`

	// Metrics settings
	ProgressSocket string `toml:"metrics.progress_socket" env:"PROGRESS_SOCKET"`

	// Server settings
	ServerAddr   string `toml:"server.addr" env:"SERVER_ADDR"`
	AuthUsername string `toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `toml:"auth.password" env:"AUTH_PASSWORD"`
	CORSOrigin   string `toml:"server.cors_origin" env:"CORS_ORIGIN"`

	// systemd settings
	SystemdUnit    string `toml:"systemd.unit" env:"SYSTEMD_UNIT"`
	SystemdUserBus bool   `toml:"systemd.user_bus" env:"SYSTEMD_USER_BUS"`

	// Logging settings
	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingOutput string `toml:"logging.output" env:"LOGGING_OUTPUT"`
}

// DefaultStreamKeyEnv names the variable holding the stream key.
const DefaultStreamKeyEnv = "YT_STREAM_KEY"

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Config:           "livewatch.toml",
		EnvFile:          ".env",
		StreamKeyEnv:     DefaultStreamKeyEnv,
		IngestURL:        launch.DefaultIngestURL,
		Input:            "input.mp4",
		Command:          ffmpeg.Binary,
		EncoderProfile:   string(ffmpeg.ProfileLowMem),
		EncoderLogLevel:  "info",
		RestartDelay:     process.DefaultRestartDelay,
		StderrMode:       string(process.StderrDiscard),
		StderrPath:       "ffmpeg.log",
		StderrMaxSizeMB:  process.DefaultMaxSizeMB,
		StderrMaxBackups: process.DefaultMaxBackups,
		LoggingLevel:     "info",
		LoggingFormat:    "text",
		LoggingOutput:    "stdout",
	}
}

func bindFlags(fs *pflag.FlagSet, o *Options) {
	fs.StringVarP(&o.Config, "config", "c", o.Config, "Path to configuration file")
	fs.StringVar(&o.EnvFile, "env-file", o.EnvFile, "Dotenv file loaded before reading the environment")

	fs.StringVar(&o.StreamKeyEnv, "stream-key-env", o.StreamKeyEnv, "Environment variable holding the stream key")
	fs.StringVar(&o.IngestURL, "ingest-url", o.IngestURL, "RTMP ingest endpoint, the stream key is appended")
	fs.StringVarP(&o.Input, "input", "i", o.Input, "Source media file, looped forever")
	fs.StringSliceVar(&o.ExtraEnv, "extra-env", o.ExtraEnv, "Additional KEY=VALUE pairs for the encoder environment")

	fs.StringVar(&o.Command, "command", o.Command, "Encoder executable")
	fs.StringVar(&o.EncoderProfile, "encoder-profile", o.EncoderProfile, "Encoder profile (lowmem, standard)")
	fs.StringVar(&o.VideoBitrate, "video-bitrate", o.VideoBitrate, "Override the profile video bitrate, e.g. 2500k")
	fs.StringVar(&o.AudioBitrate, "audio-bitrate", o.AudioBitrate, "Override the profile audio bitrate, e.g. 160k")
	fs.StringVar(&o.Preset, "preset", o.Preset, "Override the profile x264 preset")
	fs.StringVar(&o.EncoderLogLevel, "encoder-log-level", o.EncoderLogLevel, "FFmpeg log level when stderr is logged")

	fs.DurationVar(&o.RestartDelay, "restart-delay", o.RestartDelay, "Delay before restarting an exited encoder")
	fs.StringVar(&o.StderrMode, "stderr-mode", o.StderrMode, "Encoder stderr handling (discard, log, file)")
	fs.StringVar(&o.StderrPath, "stderr-path", o.StderrPath, "Encoder stderr file in file mode")
	fs.IntVar(&o.StderrMaxSizeMB, "stderr-max-size-mb", o.StderrMaxSizeMB, "Rotate the stderr file at this size")
	fs.IntVar(&o.StderrMaxBackups, "stderr-max-backups", o.StderrMaxBackups, "Rotated stderr files to keep")
	fs.BoolVar(&o.WatchConfig, "watch-config", o.WatchConfig, "Restart the encoder when the config file changes")

	fs.StringVar(&o.ProgressSocket, "progress-socket", o.ProgressSocket, "Unix socket for FFmpeg progress reports (empty disables)")

	fs.StringVar(&o.ServerAddr, "server-addr", o.ServerAddr, "Status API listen address, e.g. :8090 (empty disables)")
	fs.StringVar(&o.AuthUsername, "auth-username", o.AuthUsername, "Basic auth username for the status API")
	fs.StringVar(&o.AuthPassword, "auth-password", o.AuthPassword, "Basic auth password for the status API")
	fs.StringVar(&o.CORSOrigin, "cors-origin", o.CORSOrigin, "Allowed CORS origin for the status API (default *)")

	fs.StringVar(&o.SystemdUnit, "systemd-unit", o.SystemdUnit, "Unit name reported by /api/systemd/status")
	fs.BoolVar(&o.SystemdUserBus, "systemd-user-bus", o.SystemdUserBus, "Query the user systemd instance")

	fs.StringVar(&o.LoggingLevel, "logging-level", o.LoggingLevel, "Global logging level (debug, info, warn, error)")
	fs.StringVar(&o.LoggingFormat, "logging-format", o.LoggingFormat, "Logging format (text, json)")
	fs.StringVar(&o.LoggingOutput, "logging-output", o.LoggingOutput, "Logging output (stdout, stderr)")
}

// encoderParams resolves the profile and applies the overrides.
func (o *Options) encoderParams() ffmpeg.Params {
	p := ffmpeg.DefaultParams(ffmpeg.Profile(o.EncoderProfile))
	if o.VideoBitrate != "" {
		p.SetVideoBitrate(o.VideoBitrate)
	}
	if o.AudioBitrate != "" {
		p.AudioBitrate = o.AudioBitrate
	}
	if o.Preset != "" {
		p.Preset = o.Preset
	}
	// Leveled stderr is only useful when something parses it
	if process.StderrMode(o.StderrMode) == process.StderrLog {
		p.HideBanner = true
		p.LogLevel = o.EncoderLogLevel
	}
	return p
}

// LaunchConfig assembles the launch configuration. progressURL is empty
// when progress reporting is disabled.
func (o *Options) LaunchConfig(streamKey, progressURL string) launch.Config {
	params := o.encoderParams()
	params.ProgressURL = progressURL
	return launch.Config{
		Command:   o.Command,
		StreamKey: streamKey,
		IngestURL: o.IngestURL,
		Input:     o.Input,
		Encoder:   params,
		Env:       o.ExtraEnv,
	}
}

// ExecOptions configures the encoder launcher from the stderr settings.
func (o *Options) ExecOptions() process.ExecOptions {
	return process.ExecOptions{
		Stderr:     process.StderrMode(o.StderrMode),
		StderrPath: o.StderrPath,
		MaxSizeMB:  o.StderrMaxSizeMB,
		MaxBackups: o.StderrMaxBackups,
	}
}
