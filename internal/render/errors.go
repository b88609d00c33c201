package render

import (
	"errors"
	"fmt"

	"github.com/maauso/reel-render-api/internal/acquire"
)

// Static errors for the render pipeline.
var (
	// ErrPublishFailed is returned when a rendered artifact cannot be uploaded.
	ErrPublishFailed = errors.New("publish failed")
)

// ValidationError reports a malformed render request. It is the only
// failure the caller can fix by changing the request body alone.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// DownloadError reports a failed remote fetch of a source.
type DownloadError = acquire.DownloadError

// EncodingError reports an inline payload that could not be decoded.
type EncodingError = acquire.EncodingError

// CompositionError reports a failed encoder run.
type CompositionError struct {
	// Diagnostic is the encoder's own explanation, when it gave one.
	Diagnostic string
	Err        error
}

func (e *CompositionError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("composition failed: %s", e.Diagnostic)
	}
	return fmt.Sprintf("composition failed: %v", e.Err)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}
