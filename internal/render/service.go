package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/maauso/reel-render-api/internal/acquire"
	"github.com/maauso/reel-render-api/internal/media"
	"github.com/maauso/reel-render-api/internal/render/id"
	"github.com/maauso/reel-render-api/internal/storage"
)

// MediaAcquirer materializes the sources of a render.
type MediaAcquirer interface {
	Acquire(ctx context.Context, ws *storage.Workspace, video acquire.Remote, audio acquire.Source) (*acquire.Media, error)
}

// Service runs the render pipeline.
type Service struct {
	workspaces    storage.Workspaces
	acquirer      MediaAcquirer
	composer      media.Composer
	objects       storage.ObjectStore
	slots         *semaphore.Weighted
	renderTimeout time.Duration
	logger        *slog.Logger
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithMaxConcurrentRenders bounds how many renders acquire and encode at
// the same time. Additional requests wait for a slot.
func WithMaxConcurrentRenders(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithRenderTimeout bounds a single encoder run.
func WithRenderTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.renderTimeout = d
	}
}

// WithObjectStore enables publishing artifacts to object storage.
func WithObjectStore(store storage.ObjectStore) ServiceOption {
	return func(s *Service) {
		s.objects = store
	}
}

// NewService creates a new Service.
func NewService(workspaces storage.Workspaces, acquirer MediaAcquirer, composer media.Composer, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		workspaces: workspaces,
		acquirer:   acquirer,
		composer:   composer,
		slots:      semaphore.NewWeighted(2),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanPublish reports whether artifacts can be uploaded to object storage.
func (s *Service) CanPublish() bool {
	return s.objects != nil
}

// Render validates req, materializes its sources, and encodes the output.
// On success the caller owns the returned Artifact and must Release it once
// delivery is over. On failure every file created so far has already been
// removed.
func (s *Service) Render(ctx context.Context, req Request) (*Artifact, error) {
	plan, err := Normalize(req)
	if err != nil {
		return nil, err
	}
	if plan.PushToS3 && !s.CanPublish() {
		return nil, invalid("push_to_s3 requested but S3 storage is not configured")
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for render slot: %w", err)
	}
	defer s.slots.Release(1)

	renderID := id.Generate()
	logger := s.logger.With(slog.String("render_id", renderID))
	start := time.Now()

	ws, err := s.workspaces.NewWorkspace(ctx, renderID)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	delivered := false
	defer func() {
		if !delivered {
			releaseWorkspace(ws, logger)
		}
	}()

	logger.Info("render started",
		slog.String("audio_source", plan.Audio.Kind()),
		slog.Int("width", plan.Width),
		slog.Int("height", plan.Height),
		slog.Int("clips", len(req.Clips)),
		slog.Int("captions", len(req.Captions)),
	)

	src, err := s.acquirer.Acquire(ctx, ws, acquire.Remote{URL: plan.ClipURL}, plan.Audio)
	if err != nil {
		logger.Warn("acquisition failed", slog.String("error", err.Error()))
		return nil, err
	}

	outPath, err := s.compose(ctx, media.ComposeInput{
		VideoPath: src.Video.Handle.Path,
		AudioPath: src.Audio.Handle.Path,
		Width:     plan.Width,
		Height:    plan.Height,
		OutputDir: ws.Dir(),
	})
	if err != nil {
		logger.Error("composition failed", slog.String("error", err.Error()))
		return nil, err
	}

	if _, err := ws.Track(outPath); err != nil {
		return nil, fmt.Errorf("track output: %w", err)
	}
	info, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}

	s.logGeometry(ctx, logger, outPath)
	logger.Info("render completed",
		slog.Int64("bytes", info.Size()),
		slog.Duration("duration", time.Since(start)),
	)

	delivered = true
	return &Artifact{
		ID:     renderID,
		Path:   outPath,
		Size:   info.Size(),
		MIME:   media.OutputMIME,
		ws:     ws,
		logger: logger,
	}, nil
}

// compose runs the encoder under the render timeout and classifies failures.
func (s *Service) compose(ctx context.Context, in media.ComposeInput) (string, error) {
	if s.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.renderTimeout)
		defer cancel()
	}

	out, err := s.composer.Compose(ctx, in)
	if err == nil {
		return out, nil
	}

	var ffErr *media.FFmpegError
	if errors.As(err, &ffErr) {
		return "", &CompositionError{Diagnostic: ffErr.Diagnostic(), Err: err}
	}
	return "", &CompositionError{Err: err}
}

// logGeometry reports what was actually produced when the composer can
// inspect its own output and debug logging is on.
func (s *Service) logGeometry(ctx context.Context, logger *slog.Logger, path string) {
	prober, ok := s.composer.(media.Prober)
	if !ok || !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	info, err := prober.Probe(ctx, path)
	if err != nil {
		logger.Debug("probe failed", slog.String("error", err.Error()))
		return
	}
	logger.Debug("artifact probed",
		slog.Float64("seconds", info.Duration),
		slog.Int("width", info.Width),
		slog.Int("height", info.Height),
	)
}

// Publish uploads the artifact to object storage and returns its URL.
func (s *Service) Publish(ctx context.Context, art *Artifact) (string, error) {
	if s.objects == nil {
		return "", fmt.Errorf("%w: %w", ErrPublishFailed, storage.ErrS3NotConfigured)
	}

	f, err := art.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open artifact: %w", ErrPublishFailed, err)
	}
	defer func() { _ = f.Close() }()

	url, err := s.objects.Upload(ctx, "renders/"+art.ID+".mp4", art.MIME, f)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	art.logger.Info("artifact published", slog.String("url", url))
	return url, nil
}
