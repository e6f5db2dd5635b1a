package transcoder

import (
	"os/exec"
	"strings"
)

// ProbeCapabilities checks FFmpeg for encoders.
// Checking ffmpeg output instead of drivers proves the software stack
// can actually see the hardware.
func (e *Engine) ProbeCapabilities() {
	cmd := exec.Command(e.FFmpegPath, "-hide_banner", "-encoders")
	output, err := cmd.CombinedOutput()
	if err != nil {
		e.HasHWAccel = false
		e.bestCodec = CodecSoftware
		return
	}

	outStr := string(output)
	if strings.Contains(outStr, "nvenc") {
		e.bestCodec = CodecNVENC
		e.HasHWAccel = true
	} else if strings.Contains(outStr, "vaapi") {
		e.bestCodec = CodecVAAPI
		e.HasHWAccel = true
	} else if strings.Contains(outStr, "videotoolbox") {
		e.bestCodec = CodecVideoToolbox
		e.HasHWAccel = true
	} else {
		e.bestCodec = CodecSoftware
		e.HasHWAccel = false
	}
}
