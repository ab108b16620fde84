package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDestination writes session history snapshots to a local file,
// atomically via a temp file and rename.
type FileDestination struct {
	path string
}

// NewFileDestination creates a destination writing to the given path.
func NewFileDestination(path string) *FileDestination {
	return &FileDestination{path: path}
}

// Write replaces the target file with the rendered snapshot.
func (d *FileDestination) Write(ctx context.Context, export *Export) error {
	data, err := export.MarshalJSONL()
	if err != nil {
		return fmt.Errorf("render export: %w", err)
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sessions-*.jsonl")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
