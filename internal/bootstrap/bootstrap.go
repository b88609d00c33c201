// Package bootstrap provides dependency initialization for the reel render API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/maauso/reel-render-api/internal/acquire"
	"github.com/maauso/reel-render-api/internal/config"
	"github.com/maauso/reel-render-api/internal/media"
	"github.com/maauso/reel-render-api/internal/render"
	"github.com/maauso/reel-render-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	RenderService *render.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize workspace storage
	local, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", local.TempDir()),
	)
	sweepStale(ctx, local, cfg, logger)

	// Initialize optional S3 storage
	objects, err := initObjectStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize media acquisition
	fetcher := acquire.NewHTTPFetcher(
		acquire.WithMaxRetries(cfg.FetchMaxRetries),
		acquire.WithMaxBytes(cfg.FetchMaxBytes),
	)
	acqOpts := []acquire.Option{acquire.WithTimeout(cfg.FetchTimeout)}
	if objects != nil {
		acqOpts = append(acqOpts, acquire.WithObjectStore(objects))
	}
	acquirer := acquire.NewAcquirer(fetcher, logger, acqOpts...)

	// Initialize composer
	checkBinary(cfg.FFmpegPath, logger)
	composer := media.NewFFmpegComposer(cfg.FFmpegPath, media.WithFFprobePath(cfg.FFprobePath))

	svcOpts := []render.ServiceOption{
		render.WithMaxConcurrentRenders(cfg.MaxConcurrentRenders),
		render.WithRenderTimeout(cfg.RenderTimeout),
	}
	if objects != nil {
		svcOpts = append(svcOpts, render.WithObjectStore(objects))
	}
	svc := render.NewService(local, acquirer, composer, logger, svcOpts...)

	return &Dependencies{
		RenderService: svc,
	}, nil
}

// initObjectStore creates the S3 backend when it is configured. It returns
// nil when S3 is disabled.
func initObjectStore(cfg *config.Config, logger *slog.Logger) (storage.ObjectStore, error) {
	if !cfg.S3Enabled() {
		logger.Info("S3 storage disabled")
		return nil, nil
	}

	s3Store, err := storage.NewS3Storage(storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 storage: %w", err)
	}
	logger.Info("S3 storage configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return s3Store, nil
}

// sweepStale removes workspaces left behind by a previous process.
func sweepStale(ctx context.Context, local *storage.LocalStorage, cfg *config.Config, logger *slog.Logger) {
	if cfg.StaleWorkspaceAge <= 0 {
		return
	}
	n, err := local.SweepStale(ctx, cfg.StaleWorkspaceAge)
	if err != nil {
		logger.Warn("stale workspace sweep incomplete",
			slog.Int("removed", n),
			slog.String("error", err.Error()),
		)
		return
	}
	if n > 0 {
		logger.Info("removed stale workspaces", slog.Int("count", n))
	}
}

func checkBinary(path string, logger *slog.Logger) {
	if _, err := exec.LookPath(path); err != nil {
		logger.Warn("ffmpeg binary not found, renders will fail",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
