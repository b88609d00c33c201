package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// workspacePrefix marks directories created by NewWorkspace so SweepStale
// never touches anything else under the temp root.
const workspacePrefix = "render-"

// LocalStorage implements Workspaces using local disk.
type LocalStorage struct {
	tempDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// The tempDir parameter specifies the root under which workspaces are created.
// If tempDir is empty, a "reelrender" directory in os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "reelrender")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir}, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// NewWorkspace creates a fresh directory for one render. The render ID is
// embedded in the directory name and a random suffix guarantees uniqueness
// even if an ID were reused.
func (s *LocalStorage) NewWorkspace(ctx context.Context, renderID string) (*Workspace, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	name := strings.TrimPrefix(sanitize(renderID), workspacePrefix)
	dir, err := os.MkdirTemp(s.tempDir, workspacePrefix+name+"-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &Workspace{id: renderID, dir: dir}, nil
}

// SweepStale removes workspaces whose last modification is older than maxAge.
// It is meant to run at startup to collect directories left behind by a
// process that died mid-render. It continues past individual failures and
// returns the number of directories removed along with the first error.
func (s *LocalStorage) SweepStale(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return 0, fmt.Errorf("read temp directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var firstErr error
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return removed, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if !e.IsDir() || !strings.HasPrefix(e.Name(), workspacePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.tempDir, e.Name())); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove stale workspace %s: %w", e.Name(), err)
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// sanitize keeps IDs usable as a single path element.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
