// -----------------------------------------------------------------------
// Workspace Provider Interface - Scoped scratch storage for conversions
// -----------------------------------------------------------------------

package interfaces

// Workspace is a scoped scratch directory owned by a single conversion.
// Nothing in it survives Release.
type Workspace interface {
	// ID returns the unique workspace identifier.
	ID() string

	// Path returns the workspace root directory.
	Path() string

	// AssetsDir returns the asset subdirectory, creating it on first use.
	AssetsDir() (string, error)

	// WriteFile writes data at a path relative to the workspace root and
	// returns the absolute path.
	WriteFile(rel string, data []byte) (string, error)

	// Release removes the workspace and everything in it. Safe to call
	// more than once.
	Release() error
}

// WorkspaceProvider creates scoped scratch workspaces.
type WorkspaceProvider interface {
	Create(prefix string) (Workspace, error)
}
