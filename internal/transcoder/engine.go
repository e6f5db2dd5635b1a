package transcoder

import (
	"fmt"
	"os/exec"
)

// Define constants for supported codecs to avoid "magic strings" in the code.
// probe.go picks one of these; ffmpeg.go puts it on the command line.
const (
	CodecNVENC        = "h264_nvenc"
	CodecVAAPI        = "h264_vaapi"
	CodecVideoToolbox = "h264_videotoolbox"
	CodecSoftware     = "libx264"
)

// Engine represents the encoding capabilities of the local host.
// Its state is populated by probe.go; ffmpeg.go runs the encodes.
type Engine struct {
	FFmpegPath string
	ProbePath  string
	HasHWAccel bool
	bestCodec  string
}

// NewEngine locates the ffmpeg binaries and probes for hardware encoders.
// An empty ffmpegPath falls back to a PATH lookup.
func NewEngine(ffmpegPath string) (*Engine, error) {
	if ffmpegPath == "" {
		path, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg binary not found: %w", err)
		}
		ffmpegPath = path
	}

	probePath := "ffprobe"
	if path, err := exec.LookPath("ffprobe"); err == nil {
		probePath = path
	}

	engine := &Engine{
		FFmpegPath: ffmpegPath,
		ProbePath:  probePath,
	}

	// Hardware discovery, defined in probe.go.
	engine.ProbeCapabilities()

	return engine, nil
}

// Codec is a helper used by ffmpeg.go to select the right encoder string.
func (e *Engine) Codec() string {
	if e.bestCodec == "" {
		return CodecSoftware
	}
	return e.bestCodec
}
