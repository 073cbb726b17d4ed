// Package transcode normalizes input audio for the ASR collaborator by
// shelling out to ffmpeg and ffprobe.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skillsenselab/callscribe/errors"
	"github.com/skillsenselab/callscribe/logger"
)

const (
	// targetSampleRate is the sample rate the ASR backend expects.
	targetSampleRate = 16000

	// maxPassthroughBytes is the size above which even WAV input is
	// re-encoded to keep sidecar uploads bounded.
	maxPassthroughBytes = 100 << 20
)

// Transcoder converts audio files to mono 16kHz WAV.
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
	log         *logger.Logger
}

// New creates a Transcoder using ffmpeg and ffprobe from PATH.
func New(log *logger.Logger) *Transcoder {
	if log == nil {
		log = logger.Nop()
	}
	return &Transcoder{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		log:         log.WithComponent("transcode"),
	}
}

// NeedsConversion reports whether the file must be re-encoded before it is
// handed to the ASR backend.
func (t *Transcoder) NeedsConversion(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Size() > maxPassthroughBytes
}

// Convert re-encodes the input to mono 16kHz WAV under tmpDir and returns
// the output path. An empty tmpDir falls back to the system temp directory.
func (t *Transcoder) Convert(ctx context.Context, inputPath, tmpDir string) (string, error) {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	out := filepath.Join(tmpDir, base+"_16k.wav")

	// ffmpeg -y -i input -ac 1 -ar 16000 -f wav output
	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-y", "-i", inputPath,
		"-ac", "1", "-ar", strconv.Itoa(targetSampleRate),
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.log.Debug("converting audio", logger.Fields("input", inputPath, "output", out))
	if err := cmd.Run(); err != nil {
		return "", errors.TranscodeFailed(fmt.Errorf("ffmpeg: %w: %s", err, truncate(stderr.String(), 500)))
	}
	return out, nil
}

// Duration returns the audio duration in seconds via ffprobe.
func (t *Transcoder) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, errors.TranscodeFailed(fmt.Errorf("ffprobe: %w", err))
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, errors.TranscodeFailed(fmt.Errorf("ffprobe output %q: %w", strings.TrimSpace(string(out)), err))
	}
	return d, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
