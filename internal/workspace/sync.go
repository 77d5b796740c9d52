package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/liamhamilton123/dashboard-builder/internal/logger"
	"github.com/liamhamilton123/dashboard-builder/internal/validate"
)

// Push writes every entry of files into the workspace rooted at root.
// Entries with unsafe paths or ignored names are skipped with a warning —
// that is client error, not ours. A failed write aborts the whole sync:
// that is infrastructure trouble the caller must hear about.
// Files on disk that files does not name are left untouched.
func Push(root string, files map[string]string) error {
	for name, content := range files {
		clean := validate.SanitizePath(name)

		if !validate.Path(clean, root) {
			logger.Warn("skipping invalid file path", "path", name)
			continue
		}
		if validate.ShouldIgnore(clean) {
			logger.Warn("skipping system file", "path", name)
			continue
		}

		target := filepath.Join(root, filepath.FromSlash(clean))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("sync %s: %w", clean, err)
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return fmt.Errorf("sync %s: %w", clean, err)
		}
	}
	logger.Debug("pushed files to workspace", "count", len(files), "path", root)
	return nil
}

// Pull reads every file under root, skipping ignored names at every level,
// and returns a map keyed by workspace-relative forward-slash path. A read
// failure anywhere aborts the whole call.
func Pull(root string) (map[string]string, error) {
	files := make(map[string]string)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if validate.ShouldIgnore(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read workspace %s: %w", root, err)
	}
	return files, nil
}

// HasFiles reports whether the workspace directory contains anything.
// A missing directory is simply empty, not an error.
func HasFiles(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	return len(entries) > 0
}
