// -----------------------------------------------------------------------
// Workspace Manager - Scoped scratch directories for conversions
// -----------------------------------------------------------------------

package workspace

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriptor/internal/interfaces"
	"github.com/ternarybob/scriptor/internal/models"
)

// Manager allocates scoped scratch workspaces. Each conversion gets its own
// directory under the base dir; Release removes it entirely.
type Manager struct {
	baseDir string
	logger  arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.WorkspaceProvider = (*Manager)(nil)

// NewManager creates a workspace manager rooted at baseDir. An empty baseDir
// falls back to the system temp directory.
func NewManager(baseDir string, logger arbor.ILogger) (*Manager, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "scriptor")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, models.NewPipelineError(models.ErrWorkspaceFailure, "workspace.init", err)
	}
	return &Manager{baseDir: baseDir, logger: logger}, nil
}

// BaseDir returns the directory workspaces are created under.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Create allocates a fresh workspace directory named <prefix>-<uuid>.
func (m *Manager) Create(prefix string) (interfaces.Workspace, error) {
	if prefix == "" {
		prefix = "ws"
	}
	id := prefix + "-" + uuid.New().String()
	path := filepath.Join(m.baseDir, id)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, models.NewPipelineError(models.ErrWorkspaceFailure, "workspace.create", err)
	}

	m.logger.Debug().
		Str("workspace", id).
		Str("path", path).
		Msg("Workspace created")

	return &Workspace{id: id, path: path, logger: m.logger}, nil
}

// Workspace is one scoped scratch directory.
type Workspace struct {
	id     string
	path   string
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.Workspace = (*Workspace)(nil)

// ID returns the unique workspace identifier.
func (w *Workspace) ID() string {
	return w.id
}

// Path returns the workspace root directory.
func (w *Workspace) Path() string {
	return w.path
}

// AssetsDir returns the asset subdirectory, creating it on first use.
func (w *Workspace) AssetsDir() (string, error) {
	dir := filepath.Join(w.path, "assets")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", models.NewPipelineError(models.ErrWorkspaceFailure, "workspace.assets_dir", err)
	}
	return dir, nil
}

// WriteFile writes data at a path relative to the workspace root and
// returns the absolute path.
func (w *Workspace) WriteFile(rel string, data []byte) (string, error) {
	full := filepath.Join(w.path, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", models.NewPipelineError(models.ErrWorkspaceFailure, "workspace.write", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", models.NewPipelineError(models.ErrWorkspaceFailure, "workspace.write", err)
	}
	return full, nil
}

// Release removes the workspace directory and all of its contents. Safe to
// call more than once; a released workspace stays released.
func (w *Workspace) Release() error {
	if err := os.RemoveAll(w.path); err != nil {
		return models.NewPipelineError(models.ErrWorkspaceFailure, "workspace.release", err)
	}

	w.logger.Debug().
		Str("workspace", w.id).
		Msg("Workspace released")

	return nil
}
