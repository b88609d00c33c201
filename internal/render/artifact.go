package render

import (
	"log/slog"
	"os"
	"sync"

	"github.com/maauso/reel-render-api/internal/storage"
)

// Artifact is a finished render waiting to be delivered. It owns the render's
// workspace until Release is called.
type Artifact struct {
	// ID is the render ID.
	ID string
	// Path is the rendered file.
	Path string
	// Size is the file size in bytes.
	Size int64
	// MIME is the content type of the file.
	MIME string

	ws     *storage.Workspace
	logger *slog.Logger
	once   sync.Once
}

// Open opens the rendered file for reading.
func (a *Artifact) Open() (*os.File, error) {
	return os.Open(a.Path) // #nosec G304 - path is produced by the composer inside the workspace
}

// Release removes the artifact and every source file of the render. It is
// safe to call more than once. Failures are logged, never returned: by the
// time an artifact is released the response outcome is already decided.
func (a *Artifact) Release() {
	a.once.Do(func() {
		releaseWorkspace(a.ws, a.logger)
	})
}

func releaseWorkspace(ws *storage.Workspace, logger *slog.Logger) {
	if err := ws.Cleanup(); err != nil {
		logger.Warn("workspace cleanup failed",
			slog.String("render_id", ws.ID()),
			slog.String("dir", ws.Dir()),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("workspace released",
		slog.String("render_id", ws.ID()),
	)
}
