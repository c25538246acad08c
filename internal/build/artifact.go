package build

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/hurricane-panel/internal/frame"
)

// WriteArtifact writes the master dataset CSV through a temp file and
// rename so readers never observe a partial artifact. An empty table
// yields an empty file, which is the valid empty-state artifact.
func WriteArtifact(t *frame.Table, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".master-*.csv")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := t.WriteCSV(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}
