// Package server provides the HTTP server for the reel render API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// RenderRequest is the HTTP request body for rendering a reel.
type RenderRequest struct {
	// Clips lists the source clips. Only the first one is rendered.
	Clips []ClipRequest `json:"clips" validate:"dive"`
	// Audio carries an inline, base64-encoded soundtrack.
	Audio *AudioRequest `json:"audio,omitempty"`
	// AudioURL points at a remote soundtrack. Ignored when Audio.Data is set.
	AudioURL string `json:"audioUrl,omitempty" validate:"omitempty,url"`
	// Captions are accepted for compatibility and not rendered.
	Captions []CaptionRequest `json:"captions,omitempty"`
	// Output is the target geometry. Zero values select the defaults.
	Output OutputRequest `json:"output"`
	// PushToS3 uploads the result and returns its URL instead of the bytes.
	PushToS3 bool `json:"push_to_s3"`
}

// ClipRequest references a source clip by url or link.
type ClipRequest struct {
	URL  string `json:"url,omitempty" validate:"omitempty,url"`
	Link string `json:"link,omitempty" validate:"omitempty,url"`
}

// AudioRequest is an inline soundtrack.
type AudioRequest struct {
	Data string `json:"data"`
}

// CaptionRequest is a timed caption.
type CaptionRequest struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// OutputRequest is the requested output geometry.
type OutputRequest struct {
	Width  int `json:"width" validate:"gte=0,lte=4096"`
	Height int `json:"height" validate:"gte=0,lte=4096"`
}

// PublishResponse is the HTTP response when the render was uploaded to S3.
type PublishResponse struct {
	// VideoURL is the S3 URL of the output video.
	VideoURL string `json:"video_url"`
	// SizeBytes is the size of the uploaded video.
	SizeBytes int64 `json:"size_bytes"`
	// RenderID identifies the render in the service logs.
	RenderID string `json:"render_id"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
