// Package storage provides request-scoped scratch space on local disk and
// object access on S3.
//
// Every render owns a Workspace: a private directory under the configured
// temp root. All media files for the render live inside it, so concurrent
// renders never share a path, and removing the directory releases every
// artifact at once.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// Workspaces creates request-owned scratch directories.
type Workspaces interface {
	// NewWorkspace creates an empty directory owned by the given render.
	NewWorkspace(ctx context.Context, renderID string) (*Workspace, error)
}

// ObjectStore reads source media from and publishes artifacts to an object store.
type ObjectStore interface {
	// Open returns a reader for the object at bucket/key.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Upload stores data under key in the configured bucket and returns its URL.
	Upload(ctx context.Context, key, contentType string, data io.Reader) (url string, err error)
}
