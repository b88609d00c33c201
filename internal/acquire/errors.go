package acquire

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Static errors for acquisition.
var (
	// ErrEmptyPayload is returned when an inline payload decodes to nothing.
	ErrEmptyPayload = errors.New("inline payload is empty")
	// ErrInvalidBase64 is returned when an inline payload is not valid base64.
	ErrInvalidBase64 = errors.New("inline payload is not valid base64")
	// ErrTooLarge is returned when a download exceeds the configured byte limit.
	ErrTooLarge = errors.New("download exceeds size limit")
	// ErrUnsupportedScheme is returned for URLs that are neither http(s) nor s3.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrUnexpectedStatus is returned when the remote server answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// DownloadError reports a failed remote fetch.
type DownloadError struct {
	// URL is the source that could not be fetched.
	URL string
	// StatusCode is the HTTP status returned by the remote server, or 0 when
	// no response was received.
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to download %s: %d %s", redact(e.URL), e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("failed to download %s: %v", redact(e.URL), e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// EncodingError reports an inline payload that could not be decoded.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to decode inline audio: %v", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// redact drops query strings and credentials so signed URLs do not end up
// in responses or logs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
