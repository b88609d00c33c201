// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside the TCP port range.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidConcurrency is returned when MAX_CONCURRENT_RENDERS is not positive.
	ErrInvalidConcurrency = errors.New("config: MAX_CONCURRENT_RENDERS must be positive")
	// ErrInvalidTimeout is returned when a timeout setting is not positive.
	ErrInvalidTimeout = errors.New("config: timeouts must be positive")
	// ErrIncompleteS3Config is returned when only one of S3_BUCKET and S3_REGION is set.
	ErrIncompleteS3Config = errors.New("config: S3_BUCKET and S3_REGION must be set together")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int           `env:"PORT, default=3000" json:"port"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES, default=52428800" json:"max_body_bytes"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT, default=15m" json:"write_timeout"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Storage settings
	TempDir           string        `env:"TEMP_DIR, default=/tmp/reelrender" json:"temp_dir"`
	StaleWorkspaceAge time.Duration `env:"STALE_WORKSPACE_AGE, default=1h" json:"stale_workspace_age"`

	// Acquisition settings
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT, default=2m" json:"fetch_timeout"`
	FetchMaxRetries int           `env:"FETCH_MAX_RETRIES, default=0" json:"fetch_max_retries"`
	FetchMaxBytes   int64         `env:"FETCH_MAX_BYTES, default=0" json:"fetch_max_bytes"` // 0 disables the limit

	// Rendering settings
	FFmpegPath           string        `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath          string        `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	RenderTimeout        time.Duration `env:"RENDER_TIMEOUT, default=10m" json:"render_timeout"`
	MaxConcurrentRenders int           `env:"MAX_CONCURRENT_RENDERS, default=2" json:"max_concurrent_renders"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates the result.
func Load() (*Config, error) {
	return load(envconfig.OsLookuper())
}

func load(l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.MaxConcurrentRenders <= 0 {
		return ErrInvalidConcurrency
	}
	if c.FetchTimeout <= 0 || c.RenderTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if (c.S3Bucket == "") != (c.S3Region == "") {
		return ErrIncompleteS3Config
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, FetchTimeout: %s, RenderTimeout: %s, MaxConcurrentRenders: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.FetchTimeout,
		c.RenderTimeout,
		c.MaxConcurrentRenders,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
