package ffmpeg

import (
	"reflect"
	"slices"
	"testing"
)

func TestBuildArgsLowMem(t *testing.T) {
	p := DefaultParams(ProfileLowMem)
	p.Input = "input.mp4"
	p.OutputURL = "rtmp://a.rtmp.youtube.com/live2/KEY"

	want := []string{
		"-re",
		"-stream_loop", "-1",
		"-i", "input.mp4",
		"-rtbufsize", "64M",
		"-max_muxing_queue_size", "256",
		"-threads", "1",
		"-c:v", "libx264",
		"-profile:v", "baseline",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-pix_fmt", "yuv420p",
		"-g", "30",
		"-bf", "0",
		"-b:v", "1800k",
		"-maxrate", "1800k",
		"-bufsize", "3600k",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "48000",
		"-ac", "2",
		"-f", "flv",
		"rtmp://a.rtmp.youtube.com/live2/KEY",
	}

	if got := BuildArgs(&p); !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs() =\n%v\nwant\n%v", got, want)
	}
}

func TestBuildArgsStandardHasNoMemoryCaps(t *testing.T) {
	p := DefaultParams(ProfileStandard)
	p.Input = "in.mp4"
	p.OutputURL = "rtmp://host/app/key"

	args := BuildArgs(&p)
	for _, flag := range []string{"-rtbufsize", "-max_muxing_queue_size", "-threads"} {
		if slices.Contains(args, flag) {
			t.Errorf("standard profile should not set %s: %v", flag, args)
		}
	}
	if last := args[len(args)-1]; last != "rtmp://host/app/key" {
		t.Errorf("output URL must be last, got %q", last)
	}
}

func TestBuildArgsOptionalFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		present []string
		absent  []string
	}{
		{
			name:    "log level",
			mutate:  func(p *Params) { p.LogLevel = "warning" },
			present: []string{"-loglevel", "level+warning"},
		},
		{
			name:    "hide banner",
			mutate:  func(p *Params) { p.HideBanner = true },
			present: []string{"-hide_banner"},
		},
		{
			name:    "progress socket",
			mutate:  func(p *Params) { p.ProgressURL = "unix:///tmp/progress.sock" },
			present: []string{"-progress", "unix:///tmp/progress.sock"},
		},
		{
			name:   "no loop no realtime",
			mutate: func(p *Params) { p.Loop = false; p.Realtime = false },
			absent: []string{"-stream_loop", "-re"},
		},
		{
			name:   "b-frames unset",
			mutate: func(p *Params) { p.BFrames = -1 },
			absent: []string{"-bf"},
		},
		{
			name:   "no audio",
			mutate: func(p *Params) { p.AudioCodec = ""; p.AudioBitrate = ""; p.SampleRate = 0; p.Channels = 0 },
			absent: []string{"-c:a", "-b:a", "-ar", "-ac"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams(ProfileLowMem)
			p.Input = "in.mp4"
			p.OutputURL = "out"
			tt.mutate(&p)
			args := BuildArgs(&p)
			for _, s := range tt.present {
				if !slices.Contains(args, s) {
					t.Errorf("expected %q in %v", s, args)
				}
			}
			for _, s := range tt.absent {
				if slices.Contains(args, s) {
					t.Errorf("did not expect %q in %v", s, args)
				}
			}
		})
	}
}

func TestDefaultParamsUnknownProfile(t *testing.T) {
	if got, want := DefaultParams("bogus"), DefaultParams(ProfileLowMem); !reflect.DeepEqual(got, want) {
		t.Errorf("unknown profile = %+v, want lowmem %+v", got, want)
	}
}

func TestSetVideoBitrateScalesBuffer(t *testing.T) {
	tests := []struct {
		rate, wantBuf string
	}{
		{"6000k", "12000k"},
		{"2.5M", "5M"},
		{"800000", "1600000"},
		{"fast", "3600k"},
		{"10kb", "3600k"},
	}
	for _, tt := range tests {
		p := DefaultParams(ProfileLowMem)
		p.SetVideoBitrate(tt.rate)
		if p.VideoBitrate != tt.rate || p.MaxRate != tt.rate {
			t.Errorf("%s: bitrate=%q maxrate=%q", tt.rate, p.VideoBitrate, p.MaxRate)
		}
		if p.BufferSize != tt.wantBuf {
			t.Errorf("%s: bufsize = %q, want %q", tt.rate, p.BufferSize, tt.wantBuf)
		}
	}
}
