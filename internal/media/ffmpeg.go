package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrMissingInput is returned when a source path or output directory is empty.
	ErrMissingInput = errors.New("missing compose input")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// Encoding policy for every render.
const (
	VideoCodec   = "libx264"
	AudioCodec   = "aac"
	OutputMIME   = "video/mp4"
	outputPrefix = "out-"
	outputExt    = ".mp4"
)

// FFmpegComposer implements Composer and Prober using the ffmpeg and ffprobe CLIs.
type FFmpegComposer struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
	preset      string
	crf         int
	// seq disambiguates outputs created within the same clock tick.
	seq atomic.Uint64
}

// ComposerOption is a function that configures an FFmpegComposer.
type ComposerOption func(*FFmpegComposer)

// WithFFprobePath sets the ffprobe binary used by Probe.
func WithFFprobePath(path string) ComposerOption {
	return func(c *FFmpegComposer) {
		if path != "" {
			c.ffprobePath = path
		}
	}
}

// WithPreset sets the libx264 speed preset.
func WithPreset(preset string) ComposerOption {
	return func(c *FFmpegComposer) {
		if preset != "" {
			c.preset = preset
		}
	}
}

// NewFFmpegComposer creates a new FFmpegComposer.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegComposer(ffmpegPath string, opts ...ComposerOption) *FFmpegComposer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	c := &FFmpegComposer{
		ffmpegPath:  ffmpegPath,
		ffprobePath: "ffprobe",
		preset:      "fast",
		crf:         23,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose implements Composer.
func (c *FFmpegComposer) Compose(ctx context.Context, in ComposeInput) (string, error) {
	if in.Width <= 0 || in.Height <= 0 {
		return "", fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, in.Width, in.Height)
	}
	if in.VideoPath == "" || in.AudioPath == "" || in.OutputDir == "" {
		return "", ErrMissingInput
	}

	output := filepath.Join(in.OutputDir, c.outputName())
	if err := c.runFFmpeg(ctx, c.composeArgs(in, output)); err != nil {
		return "", err
	}
	return output, nil
}

// composeArgs builds the ffmpeg invocation for the fixed composition policy.
func (c *FFmpegComposer) composeArgs(in ComposeInput, output string) []string {
	// Hard resize: the frame is stretched to exactly WxH and the sample
	// aspect ratio reset so players do not letterbox it back.
	filter := fmt.Sprintf("scale=%d:%d,setsar=1", in.Width, in.Height)

	return []string{
		"-y",
		"-i", in.VideoPath,
		"-i", in.AudioPath,
		// Picture from the clip, sound from the track; the clip's own audio is dropped.
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-vf", filter,
		"-c:v", VideoCodec,
		"-preset", c.preset,
		"-crf", strconv.Itoa(c.crf),
		"-pix_fmt", "yuv420p",
		"-c:a", AudioCodec,
		"-b:a", "128k",
		// Stop at the end of the shorter input.
		"-shortest",
		"-movflags", "+faststart",
		output,
	}
}

func (c *FFmpegComposer) outputName() string {
	return fmt.Sprintf("%s%d-%d%s", outputPrefix, time.Now().UnixNano(), c.seq.Add(1), outputExt)
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (c *FFmpegComposer) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, c.ffmpegPath, append([]string{"-hide_banner", "-nostdin"}, args...)...)
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Diagnostic returns the last meaningful line ffmpeg printed, which is
// usually the reason it gave up.
func (e *FFmpegError) Diagnostic() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return e.Err.Error()
}

// Probe returns the duration and frame size of a media file using ffprobe.
func (c *FFmpegComposer) Probe(ctx context.Context, path string) (StreamInfo, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "default=noprint_wrappers=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return StreamInfo{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return StreamInfo{}, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	return parseProbeOutput(stdout.String())
}

// parseProbeOutput reads ffprobe's key=value output.
func parseProbeOutput(out string) (StreamInfo, error) {
	var info StreamInfo
	var sawDuration bool
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		var err error
		switch key {
		case "width":
			info.Width, err = strconv.Atoi(value)
		case "height":
			info.Height, err = strconv.Atoi(value)
		case "duration":
			info.Duration, err = strconv.ParseFloat(value, 64)
			sawDuration = err == nil
		}
		if err != nil {
			return StreamInfo{}, fmt.Errorf("parse ffprobe %s=%q: %w", key, value, err)
		}
	}
	if !sawDuration {
		return StreamInfo{}, fmt.Errorf("%w: no duration in output", ErrFFprobeExecution)
	}
	return info, nil
}
