// Package media provides the composition engine used to render clips.
package media

import "context"

// ComposeInput describes one composition: the clip supplying the picture,
// the track supplying the sound, the output frame size, and the directory
// the rendered file is written to.
type ComposeInput struct {
	VideoPath string
	AudioPath string
	Width     int
	Height    int
	OutputDir string
}

// Composer renders a video by combining the picture of one input with the
// sound of another.
type Composer interface {
	// Compose writes a new file under in.OutputDir containing the video track
	// of in.VideoPath and the audio track of in.AudioPath, scaled to exactly
	// Width x Height and cut at the end of the shorter track. It returns the
	// path of the rendered file, which is unique per call.
	Compose(ctx context.Context, in ComposeInput) (outputPath string, err error)
}

// StreamInfo describes the primary video stream of a media file.
type StreamInfo struct {
	Duration float64 // seconds
	Width    int
	Height   int
}

// Prober inspects rendered media.
type Prober interface {
	Probe(ctx context.Context, path string) (StreamInfo, error)
}
