package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFetcher downloads media over HTTP(S).
type HTTPFetcher struct {
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
	maxBytes    int64
	userAgent   string
}

// FetcherOption is a function that configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.httpClient = c
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
// Only failures that happen before any byte is written are retried.
func WithMaxRetries(n int) FetcherOption {
	return func(f *HTTPFetcher) {
		if n >= 0 {
			f.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.baseBackoff = d
	}
}

// WithMaxBytes limits the size of a single download. Zero disables the limit.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBytes = n
	}
}

// NewHTTPFetcher creates a new HTTPFetcher. The client carries no overall
// timeout: deadlines come from the caller's context so that long but
// progressing downloads are bounded by the acquisition timeout alone.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		httpClient:  &http.Client{},
		baseBackoff: 500 * time.Millisecond,
		userAgent:   "reel-render-api/1.0",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues a GET for url and streams the response body into dst.
// It returns the number of bytes written. Errors are *DownloadError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, dst io.Writer) (int64, error) {
	resp, err := f.getWithRetry(ctx, url)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return 0, &DownloadError{URL: url, Err: fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, resp.ContentLength, f.maxBytes)}
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	n, err := io.Copy(dst, body)
	if err != nil {
		return n, &DownloadError{URL: url, Err: fmt.Errorf("transfer interrupted after %d bytes: %w", n, err)}
	}
	if f.maxBytes > 0 && n > f.maxBytes {
		return n, &DownloadError{URL: url, Err: fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)}
	}
	return n, nil
}

// getWithRetry performs the GET with exponential backoff retry and returns a
// response with a 2xx status whose body the caller must close.
func (f *HTTPFetcher) getWithRetry(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	backoff := f.baseBackoff

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &DownloadError{URL: url, Err: fmt.Errorf("context cancelled: %w", ctx.Err())}
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		resp, err := f.get(ctx, url)
		if err == nil {
			return resp, nil
		}

		// Check if error is retryable
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, unwrapRetryable(err)
		}

		lastErr = err
	}

	return nil, unwrapRetryable(lastErr)
}

// get performs a single GET request.
func (f *HTTPFetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: &DownloadError{URL: url, Err: err}}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		_ = resp.Body.Close()

		dlErr := &DownloadError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)}
		// 5xx and 429 (rate limit) are retryable
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &retryableError{err: dlErr}
		}
		// Other errors are not retryable
		return nil, dlErr
	}

	return resp, nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

func unwrapRetryable(err error) error {
	var re *retryableError
	if errors.As(err, &re) {
		return re.err
	}
	return err
}
