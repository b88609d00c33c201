package media

import (
	"context"
	"errors"
	"fmt"
		"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}
}

// createTestVideo creates a solid color video with its own tone so tests
// can tell whether the clip's audio leaked into the output.
func createTestVideo(t *testing.T, path string, duration float64, width, height int) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=red:s=%dx%d:d=%.1f", width, height, duration),
		"-f", "lavfi",
		"-i", fmt.Sprintf("sine=frequency=440:d=%.1f", duration),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

// createTestAudio creates a silent AAC track.
func createTestAudio(t *testing.T, path string, duration float64) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=44100:cl=mono:d=%.1f", duration),
		"-t", fmt.Sprintf("%.1f", duration),
		"-c:a", "aac",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test audio: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpegComposer(t *testing.T) {
	t.Run("default paths", func(t *testing.T) {
		c := NewFFmpegComposer("")
		if c.ffmpegPath != "ffmpeg" {
			t.Errorf("expected default path 'ffmpeg', got %q", c.ffmpegPath)
		}
		if c.ffprobePath != "ffprobe" {
			t.Errorf("expected default path 'ffprobe', got %q", c.ffprobePath)
		}
	})

	t.Run("custom paths and preset", func(t *testing.T) {
		c := NewFFmpegComposer("/usr/local/bin/ffmpeg",
			WithFFprobePath("/usr/local/bin/ffprobe"),
			WithPreset("veryfast"),
		)
		if c.ffmpegPath != "/usr/local/bin/ffmpeg" {
			t.Errorf("expected custom path, got %q", c.ffmpegPath)
		}
		if c.ffprobePath != "/usr/local/bin/ffprobe" {
			t.Errorf("expected custom ffprobe path, got %q", c.ffprobePath)
		}
		if c.preset != "veryfast" {
			t.Errorf("expected preset veryfast, got %q", c.preset)
		}
	})
}

func TestComposeArgs(t *testing.T) {
	c := NewFFmpegComposer("")
	args := c.composeArgs(ComposeInput{
		VideoPath: "/w/video.src",
		AudioPath: "/w/audio.src",
		Width:     720,
		Height:    1280,
	}, "/w/out.mp4")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-i /w/video.src -i /w/audio.src",
		"-map 0:v:0 -map 1:a:0",
		"-vf scale=720:1280,setsar=1",
		"-c:v libx264",
		"-c:a aac",
		"-shortest",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if args[len(args)-1] != "/w/out.mp4" {
		t.Errorf("output must be the last argument, got %q", args[len(args)-1])
	}
}

func TestOutputName_Unique(t *testing.T) {
	c := NewFFmpegComposer("")
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := c.outputName()
		if !strings.HasPrefix(name, outputPrefix) || !strings.HasSuffix(name, outputExt) {
			t.Fatalf("unexpected name %q", name)
		}
		if seen[name] {
			t.Fatalf("duplicate output name %q", name)
		}
		seen[name] = true
	}
}

func TestCompose_InvalidInput(t *testing.T) {
	c := NewFFmpegComposer("")
	ctx := context.Background()

	for _, dims := range [][2]int{{0, 100}, {100, 0}, {-1, 100}} {
		_, err := c.Compose(ctx, ComposeInput{VideoPath: "v", AudioPath: "a", OutputDir: "d", Width: dims[0], Height: dims[1]})
		if !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("dims %v: expected ErrInvalidDimensions, got %v", dims, err)
		}
	}

	_, err := c.Compose(ctx, ComposeInput{AudioPath: "a", OutputDir: "d", Width: 2, Height: 2})
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("expected ErrMissingInput, got %v", err)
	}
}

func TestCompose(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	c := NewFFmpegComposer("", WithPreset("ultrafast"))
	ctx := context.Background()

	video := filepath.Join(tmpDir, "video.mp4")
	createTestVideo(t, video, 10, 320, 240)

	t.Run("audio shorter than video", func(t *testing.T) {
		audio := filepath.Join(tmpDir, "short.m4a")
		createTestAudio(t, audio, 3)

		out, err := c.Compose(ctx, ComposeInput{VideoPath: video, AudioPath: audio, Width: 720, Height: 1280, OutputDir: tmpDir})
		if err != nil {
			t.Fatalf("Compose failed: %v", err)
		}
		if filepath.Dir(out) != tmpDir {
			t.Errorf("output %s not written to %s", out, tmpDir)
		}

		info, err := c.Probe(ctx, out)
		if err != nil {
			t.Fatalf("Probe failed: %v", err)
		}
		if info.Duration < 2.5 || info.Duration > 3.5 {
			t.Errorf("expected duration ~3s, got %.2f", info.Duration)
		}
		if info.Width != 720 || info.Height != 1280 {
			t.Errorf("expected 720x1280 regardless of source aspect, got %dx%d", info.Width, info.Height)
		}
	})

	t.Run("video shorter than audio", func(t *testing.T) {
		shortVideo := filepath.Join(tmpDir, "short_video.mp4")
		createTestVideo(t, shortVideo, 2, 64, 64)
		audio := filepath.Join(tmpDir, "long.m4a")
		createTestAudio(t, audio, 6)

		out, err := c.Compose(ctx, ComposeInput{VideoPath: shortVideo, AudioPath: audio, Width: 64, Height: 128, OutputDir: tmpDir})
		if err != nil {
			t.Fatalf("Compose failed: %v", err)
		}

		info, err := c.Probe(ctx, out)
		if err != nil {
			t.Fatalf("Probe failed: %v", err)
		}
		if info.Duration > 3 {
			t.Errorf("expected duration ~2s, got %.2f", info.Duration)
		}
	})

	t.Run("non-existent source", func(t *testing.T) {
		_, err := c.Compose(ctx, ComposeInput{VideoPath: "/nonexistent/video.mp4", AudioPath: video, Width: 64, Height: 64, OutputDir: tmpDir})
		var ffErr *FFmpegError
		if !errors.As(err, &ffErr) {
			t.Fatalf("expected FFmpegError, got %T (%v)", err, err)
		}
		if ffErr.Diagnostic() == "" {
			t.Error("expected a diagnostic line")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		audio := filepath.Join(tmpDir, "cancel.m4a")
		createTestAudio(t, audio, 1)

		_, err := c.Compose(ctx, ComposeInput{VideoPath: video, AudioPath: audio, Width: 64, Height: 64, OutputDir: tmpDir})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestProbe_NonExistent(t *testing.T) {
	skipIfNoFFmpeg(t)

	_, err := NewFFmpegComposer("").Probe(context.Background(), "/nonexistent/file.mp4")
	if !errors.Is(err, ErrFFprobeExecution) {
		t.Errorf("expected ErrFFprobeExecution, got %v", err)
	}
}

func TestParseProbeOutput(t *testing.T) {
	info, err := parseProbeOutput("width=720\nheight=1280\nduration=3.016000\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Width != 720 || info.Height != 1280 || info.Duration != 3.016 {
		t.Errorf("unexpected info %+v", info)
	}

	if _, err := parseProbeOutput("width=720\n"); err == nil {
		t.Error("expected error when duration is missing")
	}
	if _, err := parseProbeOutput("width=abc\nduration=1\n"); err == nil {
		t.Error("expected error for malformed width")
	}
}

func TestFFmpegError(t *testing.T) {
	err := &FFmpegError{
		Args:   []string{"-i", "input.mp4", "output.mp4"},
		Stderr: "some banner\ninput.mp4: No such file or directory\n\n",
		Err:    fmt.Errorf("exit status 1"),
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "exit status 1") {
		t.Error("Error() should contain underlying error")
	}
	if !strings.Contains(errStr, "No such file or directory") {
		t.Error("Error() should contain stderr")
	}
	if got := err.Diagnostic(); got != "input.mp4: No such file or directory" {
		t.Errorf("Diagnostic() = %q", got)
	}
	if unwrapped := err.Unwrap(); unwrapped == nil || unwrapped.Error() != "exit status 1" {
		t.Errorf("Unwrap() returned wrong error: %v", unwrapped)
	}

	empty := &FFmpegError{Err: fmt.Errorf("signal: killed")}
	if got := empty.Diagnostic(); got != "signal: killed" {
		t.Errorf("Diagnostic() fallback = %q", got)
	}
}

