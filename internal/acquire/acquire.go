// Package acquire materializes the source media of a render as local files.
//
// Remote sources are fetched over HTTP(S) or from S3 and streamed straight to
// disk; inline sources are base64 payloads decoded in memory and written in
// one operation. Every file lands in the render's own workspace.
package acquire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/maauso/reel-render-api/internal/storage"
)

// Source is where a piece of media comes from. It is either Remote or Inline.
type Source interface {
	// Kind names the variant for logging.
	Kind() string
	isSource()
}

// Remote is media referenced by URL (http, https or s3).
type Remote struct {
	URL string
}

// Inline is media carried in the request as base64 text.
type Inline struct {
	Data string
}

// Kind implements Source.
func (Remote) Kind() string { return "remote" }

// Kind implements Source.
func (Inline) Kind() string { return "inline" }

func (Remote) isSource() {}
func (Inline) isSource() {}

// Workspace file names. They only need to be unique within one workspace.
const (
	VideoFile = "video.src"
	AudioFile = "audio.src"
)

// Fetcher streams a remote resource into dst.
type Fetcher interface {
	Fetch(ctx context.Context, url string, dst io.Writer) (int64, error)
}

// Material is one materialized source file.
type Material struct {
	Handle *storage.MediaHandle
	Size   int64
	// MIME is the sniffed content type, for diagnostics only.
	MIME string
}

// Media holds the two files a composition needs.
type Media struct {
	Video Material
	Audio Material
}

// Acquirer resolves sources into workspace files.
type Acquirer struct {
	fetcher Fetcher
	objects storage.ObjectStore
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithObjectStore enables s3:// sources.
func WithObjectStore(store storage.ObjectStore) Option {
	return func(a *Acquirer) {
		a.objects = store
	}
}

// WithTimeout bounds each individual download.
func WithTimeout(d time.Duration) Option {
	return func(a *Acquirer) {
		a.timeout = d
	}
}

// NewAcquirer creates an Acquirer that downloads through fetcher.
func NewAcquirer(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Acquirer{
		fetcher: fetcher,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire materializes the clip and the audio track into ws concurrently.
// The first failure cancels the other transfer. Files written before a
// failure stay tracked by ws, so the caller's cleanup removes them.
func (a *Acquirer) Acquire(ctx context.Context, ws *storage.Workspace, video Remote, audio Source) (*Media, error) {
	var media Media
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m, err := a.fetch(gctx, ws, VideoFile, video.URL)
		if err != nil {
			return err
		}
		media.Video = m
		return nil
	})

	g.Go(func() error {
		var (
			m   Material
			err error
		)
		switch src := audio.(type) {
		case Remote:
			m, err = a.fetch(gctx, ws, AudioFile, src.URL)
		case Inline:
			m, err = a.decode(ws, AudioFile, src.Data)
		default:
			err = fmt.Errorf("unknown audio source %T", audio)
		}
		if err != nil {
			return err
		}
		media.Audio = m
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &media, nil
}

// fetch downloads rawURL into a new workspace file.
func (a *Acquirer) fetch(ctx context.Context, ws *storage.Workspace, name, rawURL string) (Material, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	u, err := url.Parse(rawURL)
	if err != nil {
		return Material{}, &DownloadError{URL: rawURL, Err: err}
	}

	var (
		h *storage.MediaHandle
		n int64
	)
	switch u.Scheme {
	case "http", "https":
		h, n, err = a.fetchHTTP(ctx, ws, name, rawURL)
	case "s3":
		h, n, err = a.fetchS3(ctx, ws, name, rawURL)
	default:
		err = &DownloadError{URL: rawURL, Err: fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)}
	}
	if err != nil {
		return Material{}, err
	}

	m := Material{Handle: h, Size: n, MIME: sniff(h.Path)}
	a.logger.Debug("source downloaded",
		slog.String("render_id", ws.ID()),
		slog.String("file", name),
		slog.String("url", redact(rawURL)),
		slog.Int64("bytes", n),
		slog.String("mime", m.MIME),
		slog.Duration("duration", time.Since(start)),
	)
	return m, nil
}

func (a *Acquirer) fetchHTTP(ctx context.Context, ws *storage.Workspace, name, rawURL string) (*storage.MediaHandle, int64, error) {
	f, h, err := ws.Create(name)
	if err != nil {
		return nil, 0, err
	}

	n, err := a.fetcher.Fetch(ctx, rawURL, f)
	closeErr := f.Close()
	if err != nil {
		return nil, n, err
	}
	if closeErr != nil {
		return nil, n, &DownloadError{URL: rawURL, Err: fmt.Errorf("close workspace file: %w", closeErr)}
	}
	return h, n, nil
}

func (a *Acquirer) fetchS3(ctx context.Context, ws *storage.Workspace, name, rawURL string) (*storage.MediaHandle, int64, error) {
	if a.objects == nil {
		return nil, 0, &DownloadError{URL: rawURL, Err: storage.ErrS3NotConfigured}
	}
	bucket, key, err := storage.ParseS3URL(rawURL)
	if err != nil {
		return nil, 0, &DownloadError{URL: rawURL, Err: err}
	}

	rc, err := a.objects.Open(ctx, bucket, key)
	if err != nil {
		return nil, 0, &DownloadError{URL: rawURL, Err: err}
	}
	defer func() { _ = rc.Close() }()

	h, n, err := ws.Save(ctx, name, rc)
	if err != nil {
		return nil, n, &DownloadError{URL: rawURL, Err: fmt.Errorf("transfer interrupted after %d bytes: %w", n, err)}
	}
	return h, n, nil
}

// decode writes an inline payload into a new workspace file.
func (a *Acquirer) decode(ws *storage.Workspace, name, payload string) (Material, error) {
	data, err := DecodeBase64(payload)
	if err != nil {
		return Material{}, &EncodingError{Err: err}
	}

	h, err := ws.WriteFile(name, data)
	if err != nil {
		return Material{}, err
	}

	m := Material{Handle: h, Size: int64(len(data)), MIME: mimetype.Detect(data).String()}
	a.logger.Debug("inline source decoded",
		slog.String("render_id", ws.ID()),
		slog.String("file", name),
		slog.Int64("bytes", m.Size),
		slog.String("mime", m.MIME),
	)
	return m, nil
}

// sniff reports the content type of a materialized file. Failures are not
// fatal: the encoder decides whether it can read the file.
func sniff(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "unknown"
	}
	return mt.String()
}
