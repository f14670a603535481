package launch

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/smazurov/livewatch/internal/ffmpeg"
)

func validConfig() Config {
	return Config{
		StreamKey: "abcd-efgh-ijkl",
		IngestURL: DefaultIngestURL,
		Input:     "input.mp4",
		Encoder:   ffmpeg.DefaultParams(ffmpeg.ProfileLowMem),
	}
}

func TestBuild(t *testing.T) {
	spec, err := Build(validConfig())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if spec.Command() != "ffmpeg" {
		t.Errorf("Command() = %q, want ffmpeg", spec.Command())
	}
	wantDest := "rtmp://a.rtmp.youtube.com/live2/abcd-efgh-ijkl"
	if spec.Destination() != wantDest {
		t.Errorf("Destination() = %q, want %q", spec.Destination(), wantDest)
	}
	args := spec.Args()
	if args[len(args)-1] != wantDest {
		t.Errorf("last arg = %q, want destination", args[len(args)-1])
	}
	if !slices.Contains(args, "input.mp4") {
		t.Errorf("input missing from args: %v", args)
	}
	if spec.Input() != "input.mp4" {
		t.Errorf("Input() = %q", spec.Input())
	}
}

func TestBuildTrailingSlashIngest(t *testing.T) {
	cfg := validConfig()
	cfg.IngestURL = "rtmp://live.example.com/app/"
	spec, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := spec.Destination(); got != "rtmp://live.example.com/app/abcd-efgh-ijkl" {
		t.Errorf("Destination() = %q", got)
	}
}

func TestBuildMissingValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no stream key", func(c *Config) { c.StreamKey = "" }, "stream_key"},
		{"no ingest url", func(c *Config) { c.IngestURL = "  " }, "ingest_url"},
		{"no input", func(c *Config) { c.Input = "" }, "input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := Build(cfg)

			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestSpecIsImmutable(t *testing.T) {
	cfg := validConfig()
	cfg.Env = []string{"A=1"}
	spec, err := Build(cfg)
	if err != nil {
		t.Fatal(err)
	}

	args := spec.Args()
	args[0] = "mutated"
	if spec.Args()[0] == "mutated" {
		t.Error("Args() must return a copy")
	}

	cfg.Env[0] = "A=2"
	if spec.Env()[0] != "A=1" {
		t.Error("Spec must not alias the config Env slice")
	}
}

func TestSpecRedacted(t *testing.T) {
	spec, err := Build(validConfig())
	if err != nil {
		t.Fatal(err)
	}

	if s := spec.String(); strings.Contains(s, "abcd-efgh-ijkl") {
		t.Errorf("String() leaks stream key: %s", s)
	}
	red := spec.Redacted()
	if red[len(red)-1] != "rtmp://a.rtmp.youtube.com/live2/****" {
		t.Errorf("redacted destination = %q", red[len(red)-1])
	}
	if !strings.Contains(spec.Args()[len(red)-1], "abcd-efgh-ijkl") {
		t.Error("Redacted() must not modify the real args")
	}
}

func TestNewSpec(t *testing.T) {
	spec := NewSpec("sh", "-c", "exit 1")
	if spec.String() != "sh -c exit 1" {
		t.Errorf("String() = %q", spec.String())
	}
}

func TestSourceUpdate(t *testing.T) {
	src := NewSource(validConfig())

	if src.Update(validConfig()) {
		t.Error("Update with identical config should report no change")
	}

	next := validConfig()
	next.Input = "other.mp4"
	if !src.Update(next) {
		t.Error("Update with new input should report change")
	}

	spec, err := src.LaunchSpec()
	if err != nil {
		t.Fatal(err)
	}
	if spec.Input() != "other.mp4" {
		t.Errorf("LaunchSpec uses stale config: %q", spec.Input())
	}
}
