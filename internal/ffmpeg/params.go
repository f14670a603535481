package ffmpeg

import (
	"strconv"
	"strings"
)

// Profile selects a preset group of encoder settings.
type Profile string

// Encoder profiles.
const (
	// ProfileLowMem caps buffers and threads so the encoder stays within small container memory limits.
	ProfileLowMem Profile = "lowmem"
	// ProfileStandard leaves buffering and threading to FFmpeg defaults.
	ProfileStandard Profile = "standard"
)

// Params represents all parameters needed to generate an FFmpeg argument list.
type Params struct {
	// Input
	Input    string // source media file
	Loop     bool   // -stream_loop -1
	Realtime bool   // -re, read input at native frame rate

	// Memory caps (lowmem profile)
	RTBufSize          string // -rtbufsize 64M
	MaxMuxingQueueSize int    // -max_muxing_queue_size 256 (0 = not set)
	Threads            int    // -threads 1 (0 = not set)

	// Video
	VideoCodec   string // libx264
	VideoProfile string // baseline
	Preset       string // ultrafast
	Tune         string // zerolatency
	PixFmt       string // yuv420p
	GOP          int    // keyframe interval (0 = not set)
	BFrames      int    // B-frame count (-1 = not set, 0 = no B-frames)
	VideoBitrate string // 1800k
	MaxRate      string
	BufferSize   string

	// Audio
	AudioCodec   string // aac
	AudioBitrate string // 128k
	SampleRate   int    // 48000
	Channels     int    // 2

	// Output
	Format    string // flv
	OutputURL string // rtmp://.../<key>

	// HideBanner suppresses the version banner FFmpeg prints on startup.
	HideBanner bool

	// LogLevel enables "-loglevel level+<LogLevel>" so stderr lines carry a parseable level.
	// Empty means FFmpeg's default output.
	LogLevel string

	// ProgressURL enables "-progress <url>", e.g. unix:///run/livewatch/progress.sock.
	ProgressURL string
}

// DefaultParams returns the settings for the given profile.
// Unknown profiles fall back to ProfileLowMem.
func DefaultParams(profile Profile) Params {
	p := Params{
		Loop:         true,
		Realtime:     true,
		VideoCodec:   "libx264",
		VideoProfile: "baseline",
		Preset:       "ultrafast",
		Tune:         "zerolatency",
		PixFmt:       "yuv420p",
		GOP:          30,
		BFrames:      0,
		VideoBitrate: "1800k",
		MaxRate:      "1800k",
		BufferSize:   "3600k",
		AudioCodec:   "aac",
		AudioBitrate: "128k",
		SampleRate:   48000,
		Channels:     2,
		Format:       "flv",
	}

	if profile == ProfileStandard {
		p.VideoProfile = "main"
		p.Preset = "veryfast"
		p.GOP = 60
		p.VideoBitrate = "3000k"
		p.MaxRate = "3000k"
		p.BufferSize = "6000k"
		return p
	}

	p.RTBufSize = "64M"
	p.MaxMuxingQueueSize = 256
	p.Threads = 1
	return p
}

// SetVideoBitrate sets a constant video bitrate such as "2500k". The rate cap
// follows it and the VBV buffer holds two seconds at that rate. A rate that
// cannot be scaled keeps the current buffer size.
func (p *Params) SetVideoBitrate(rate string) {
	p.VideoBitrate = rate
	p.MaxRate = rate
	if buf, ok := scaleRate(rate, 2); ok {
		p.BufferSize = buf
	}
}

// scaleRate multiplies an FFmpeg rate with an optional k or M suffix.
func scaleRate(rate string, factor float64) (string, bool) {
	num, suffix := rate, ""
	if i := strings.IndexAny(rate, "kKmM"); i >= 0 {
		num, suffix = rate[:i], rate[i:]
		if len(suffix) != 1 {
			return "", false
		}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return "", false
	}
	return strconv.FormatFloat(v*factor, 'f', -1, 64) + suffix, true
}
