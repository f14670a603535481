package ffmpeg

import (
	"strconv"
)

// Binary is the default encoder executable name.
const Binary = "ffmpeg"

// BuildArgs builds the FFmpeg argument list from structured parameters.
// The order is significant: input options, input, output options, output.
func BuildArgs(p *Params) []string {
	var args []string

	if p.HideBanner {
		args = append(args, "-hide_banner")
	}
	if p.LogLevel != "" {
		args = append(args, "-loglevel", "level+"+p.LogLevel)
	}
	args = appendIfSet(args, "-progress", p.ProgressURL)

	// Input configuration
	if p.Realtime {
		args = append(args, "-re")
	}
	if p.Loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-i", p.Input)

	// Memory caps
	if p.RTBufSize != "" {
		args = append(args, "-rtbufsize", p.RTBufSize)
	}
	if p.MaxMuxingQueueSize > 0 {
		args = append(args, "-max_muxing_queue_size", strconv.Itoa(p.MaxMuxingQueueSize))
	}
	if p.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(p.Threads))
	}

	// Video
	args = appendIfSet(args, "-c:v", p.VideoCodec)
	args = appendIfSet(args, "-profile:v", p.VideoProfile)
	args = appendIfSet(args, "-preset", p.Preset)
	args = appendIfSet(args, "-tune", p.Tune)
	args = appendIfSet(args, "-pix_fmt", p.PixFmt)
	if p.GOP > 0 {
		args = append(args, "-g", strconv.Itoa(p.GOP))
	}
	if p.BFrames >= 0 {
		args = append(args, "-bf", strconv.Itoa(p.BFrames))
	}
	args = appendIfSet(args, "-b:v", p.VideoBitrate)
	args = appendIfSet(args, "-maxrate", p.MaxRate)
	args = appendIfSet(args, "-bufsize", p.BufferSize)

	// Audio
	args = appendIfSet(args, "-c:a", p.AudioCodec)
	args = appendIfSet(args, "-b:a", p.AudioBitrate)
	if p.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(p.SampleRate))
	}
	if p.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(p.Channels))
	}

	// Output
	args = appendIfSet(args, "-f", p.Format)
	return append(args, p.OutputURL)
}

func appendIfSet(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag, value)
}
