// Package render turns a render request into a finished MP4.
//
// The pipeline runs four stages per request: Normalize validates the request
// and resolves its sources, the acquirer materializes the clip and the audio
// track in a workspace owned by the render, the composer encodes the output,
// and the returned Artifact is delivered by the caller and then released,
// which removes every file the render created.
package render

import (
	"net/url"

	"github.com/maauso/reel-render-api/internal/acquire"
)

// Output geometry bounds.
const (
	DefaultWidth  = 1080
	DefaultHeight = 1920
	MaxDimension  = 4096
)

// ClipRef references a source video. Either field may carry the URL.
type ClipRef struct {
	URL  string
	Link string
}

// Ref returns the first non-empty of URL and Link.
func (c ClipRef) Ref() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Link
}

// Caption is accepted for forward compatibility and otherwise ignored.
type Caption struct {
	Text  string
	Start float64
	End   float64
}

// OutputSpec is the requested frame size. Zero values select the defaults.
type OutputSpec struct {
	Width  int
	Height int
}

// Request is a render request as received from the caller.
type Request struct {
	// Clips lists source videos. Only the first one is used.
	Clips []ClipRef
	// AudioData is an inline base64 payload.
	AudioData string
	// AudioURL references a remote audio track.
	AudioURL string
	Captions []Caption
	Output   OutputSpec
	// PushToS3 uploads the result instead of returning its bytes.
	PushToS3 bool
}

// Plan is a validated request with every choice resolved.
type Plan struct {
	ClipURL  string
	Audio    acquire.Source
	Width    int
	Height   int
	PushToS3 bool
}

// Normalize validates req and resolves it into a Plan. It has no side effects.
func Normalize(req Request) (Plan, error) {
	if len(req.Clips) == 0 {
		return Plan{}, invalid("no clips")
	}

	clipURL := req.Clips[0].Ref()
	if clipURL == "" {
		return Plan{}, invalid("clip url is required")
	}
	if !supportedURL(clipURL) {
		return Plan{}, invalid("clip url must be an absolute http, https or s3 URL")
	}

	var audio acquire.Source
	switch {
	case req.AudioData != "":
		audio = acquire.Inline{Data: req.AudioData}
	case req.AudioURL != "":
		if !supportedURL(req.AudioURL) {
			return Plan{}, invalid("audio url must be an absolute http, https or s3 URL")
		}
		audio = acquire.Remote{URL: req.AudioURL}
	default:
		return Plan{}, invalid("missing audio source")
	}

	width, height := req.Output.Width, req.Output.Height
	if width == 0 {
		width = DefaultWidth
	}
	if height == 0 {
		height = DefaultHeight
	}
	if width < 0 || height < 0 || width > MaxDimension || height > MaxDimension {
		return Plan{}, invalid("output dimensions must be between 1 and %d", MaxDimension)
	}
	// libx264 with yuv420p only encodes even dimensions.
	if width%2 != 0 || height%2 != 0 {
		return Plan{}, invalid("output dimensions must be even, got %dx%d", width, height)
	}

	return Plan{
		ClipURL:  clipURL,
		Audio:    audio,
		Width:    width,
		Height:   height,
		PushToS3: req.PushToS3,
	}, nil
}

func supportedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "s3":
		return true
	default:
		return false
	}
}
