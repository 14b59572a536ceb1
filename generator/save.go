package generator

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSaver writes downloaded images into Dir, creating it if needed.
type FileSaver struct {
	Dir string
}

func (f FileSaver) Save(name string, img Image) error {
	dir := f.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, img.PNG, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
