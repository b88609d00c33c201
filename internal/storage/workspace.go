package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Static errors for workspace operations.
var (
	// ErrInvalidName is returned when a file name is empty or contains a path separator.
	ErrInvalidName = errors.New("invalid workspace file name")
	// ErrWorkspaceReleased is returned when a workspace is used after Cleanup.
	ErrWorkspaceReleased = errors.New("workspace already released")
)

// MediaHandle records ownership of a single file inside a Workspace.
type MediaHandle struct {
	// Name is the file name relative to the workspace directory.
	Name string
	// Path is the absolute path of the file.
	Path string
	// Created reports whether the file was actually written to disk.
	Created bool
}

// Workspace is a directory exclusively owned by one render. It tracks the
// files placed in it and removes all of them on Cleanup.
type Workspace struct {
	id  string
	dir string

	mu       sync.Mutex
	handles  []*MediaHandle
	released bool
}

// ID returns the render ID that owns the workspace.
func (w *Workspace) ID() string {
	return w.id
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Create opens a new file in the workspace for writing. The file must not
// already exist. The returned handle is tracked for cleanup.
func (w *Workspace) Create(name string) (*os.File, *MediaHandle, error) {
	if err := validName(name); err != nil {
		return nil, nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return nil, nil, ErrWorkspaceReleased
	}

	path := filepath.Join(w.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600) // #nosec G304 - name is validated above
	if err != nil {
		return nil, nil, fmt.Errorf("create workspace file: %w", err)
	}

	h := &MediaHandle{Name: name, Path: path, Created: true}
	w.handles = append(w.handles, h)
	return f, h, nil
}

// Save streams data into a new workspace file and returns its handle and the
// number of bytes written. On failure the partial file stays tracked and is
// removed by Cleanup.
func (w *Workspace) Save(ctx context.Context, name string, data io.Reader) (*MediaHandle, int64, error) {
	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, h, err := w.Create(name)
	if err != nil {
		return nil, 0, err
	}

	n, err := io.Copy(f, data)
	if err != nil {
		_ = f.Close()
		return h, n, fmt.Errorf("write workspace file: %w", err)
	}

	if err := f.Close(); err != nil {
		return h, n, fmt.Errorf("close workspace file: %w", err)
	}

	return h, n, nil
}

// WriteFile writes data to a new workspace file in one operation.
func (w *Workspace) WriteFile(name string, data []byte) (*MediaHandle, error) {
	f, h, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return h, fmt.Errorf("write workspace file: %w", err)
	}
	if err := f.Close(); err != nil {
		return h, fmt.Errorf("close workspace file: %w", err)
	}
	return h, nil
}

// Track registers a file that another component wrote into the workspace
// directory, such as the encoder's output. Paths outside the workspace are
// rejected.
func (w *Workspace) Track(path string) (*MediaHandle, error) {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || validName(rel) != nil {
		return nil, fmt.Errorf("%w: %s is not inside %s", ErrInvalidName, path, w.dir)
	}

	_, statErr := os.Stat(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return nil, ErrWorkspaceReleased
	}

	h := &MediaHandle{Name: rel, Path: path, Created: statErr == nil}
	w.handles = append(w.handles, h)
	return h, nil
}

// Handles returns a snapshot of the files tracked so far.
func (w *Workspace) Handles() []MediaHandle {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]MediaHandle, 0, len(w.handles))
	for _, h := range w.handles {
		out = append(out, *h)
	}
	return out
}

// Cleanup removes every tracked file and then the workspace directory itself.
// It is safe to call more than once; only the first call does any work.
// Missing files are not errors. All removal failures are joined into the
// returned error.
func (w *Workspace) Cleanup() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return nil
	}
	w.released = true

	var errs []error
	for _, h := range w.handles {
		if !h.Created {
			continue
		}
		if err := os.Remove(h.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", h.Name, err))
		} else {
			h.Created = false
		}
	}

	if err := os.RemoveAll(w.dir); err != nil {
		errs = append(errs, fmt.Errorf("remove workspace %s: %w", w.dir, err))
	}

	return errors.Join(errs...)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
