package upload

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// ListFiles recursively lists all regular files under root and returns
// their slash-separated paths relative to root. An empty directory yields
// an empty slice, not an error. Ordering is not guaranteed to be stable;
// callers must not depend on it.
func ListFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}

		files = append(files, filepath.ToSlash(relPath))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", root, err)
	}

	return files, nil
}
