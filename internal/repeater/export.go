package repeater

import (
	"fmt"
	"os"
	"path/filepath"
)

// SaveExport writes an exported deck into dir and returns the file path.
// An existing file with the same name is replaced.
func SaveExport(dir string, export Export) (string, error) {
	name := filepath.Base(export.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("save export: invalid filename %q", export.Filename)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, export.Data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
