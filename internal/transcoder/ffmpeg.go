package transcoder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"transcode-pipeline/pkg/models"
)

// playlistName is the per-rendition playlist file inside its folder.
const playlistName = "index.m3u8"

// stderrTailLines bounds how much ffmpeg output we keep for diagnostics.
const stderrTailLines = 20

// Variant is the successful result of one rendition encode.
type Variant struct {
	Playlist  string // relative to the job dir, e.g. "1280x720/index.m3u8"
	Bandwidth int    // bits per second
	Width     int
	Height    int
}

// ProgressFunc observes encode progress as a 0-100 percentage.
// It is purely informational and never control flow.
type ProgressFunc func(pct float64)

var reTime = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2}\.\d+)`)

// EncodeRendition runs ffmpeg for a single target resolution, producing
// a segmented HLS playlist in a resolution-named subfolder of jobDir.
// On failure the returned error carries the tail of ffmpeg's stderr.
func (e *Engine) EncodeRendition(ctx context.Context, inputPath, jobDir string, r models.Resolution, progress ProgressFunc) (Variant, error) {
	variantDir := filepath.Join(jobDir, r.Label())
	if err := os.MkdirAll(variantDir, 0755); err != nil {
		return Variant{}, fmt.Errorf("failed to create rendition dir: %w", err)
	}

	// Probe the input duration so progress can be derived from timecodes.
	durationSec, err := e.probeDuration(ctx, inputPath)
	if err != nil {
		return Variant{}, fmt.Errorf("probe failed: %w", err)
	}

	args := e.buildRenditionArgs(inputPath, variantDir, r)
	cmd := exec.CommandContext(ctx, e.FFmpegPath, args...)

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Variant{}, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	// The literal invocation goes to the log for auditing.
	log.Printf("Starting encode: %s %s", e.FFmpegPath, strings.Join(args, " "))

	if err := cmd.Start(); err != nil {
		return Variant{}, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// Scan stderr for "time=00:00:15.45" lines while keeping a tail
	// of raw output for the failure diagnostic.
	tailCh := make(chan []string, 1)
	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		var tail []string
		for scanner.Scan() {
			line := scanner.Text()
			tail = append(tail, line)
			if len(tail) > stderrTailLines {
				tail = tail[1:]
			}

			if progress == nil || durationSec <= 0 {
				continue
			}
			matches := reTime.FindStringSubmatch(line)
			if len(matches) != 4 {
				continue
			}
			h, _ := strconv.Atoi(matches[1])
			m, _ := strconv.Atoi(matches[2])
			s, _ := strconv.ParseFloat(matches[3], 64)
			currentSec := float64(h*3600+m*60) + s

			pct := (currentSec / durationSec) * 100
			if pct > 100 {
				pct = 100
			}
			progress(pct)
		}
		tailCh <- tail
	}()

	waitErr := cmd.Wait()
	tail := <-tailCh
	if waitErr != nil {
		return Variant{}, fmt.Errorf("ffmpeg failed for %s: %w: %s", r.Label(), waitErr, strings.Join(tail, "\n"))
	}

	return Variant{
		Playlist:  r.Label() + "/" + playlistName,
		Bandwidth: r.Bitrate * 1000, // kbit/s -> bit/s
		Width:     r.Width,
		Height:    r.Height,
	}, nil
}

// probeDuration uses ffprobe to get media duration in seconds
func (e *Engine) probeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}
	cmd := exec.CommandContext(ctx, e.ProbePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, err
	}

	type probeResult struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	var res probeResult
	if err := json.Unmarshal(output, &res); err != nil {
		return 0, err
	}

	return strconv.ParseFloat(res.Format.Duration, 64)
}

// buildRenditionArgs constructs the ffmpeg command for one rendition.
func (e *Engine) buildRenditionArgs(inputPath, variantDir string, r models.Resolution) []string {
	return []string{
		"-y", // Overwrite output
		"-hide_banner",
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%d:%d", r.Width, r.Height),
		"-c:v", e.Codec(),
		"-b:v", fmt.Sprintf("%dk", r.Bitrate),
		"-r", strconv.Itoa(r.Framerate),
		"-c:a", "aac", // Audio is usually AAC for HLS
		"-b:a", "128k",
		"-f", "hls",
		"-hls_time", "6", // Standard segment duration
		"-hls_list_size", "0", // Keep all segments in playlist (VOD mode)
		"-hls_segment_filename", filepath.Join(variantDir, "segment_%03d.ts"),
		filepath.Join(variantDir, playlistName),
	}
}
