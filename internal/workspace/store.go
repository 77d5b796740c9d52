// Package workspace maps session identifiers to isolated on-disk directories
// and syncs file maps in and out of them.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/liamhamilton123/dashboard-builder/internal/logger"
)

// Info records one created workspace.
type Info struct {
	ID        string
	Path      string
	CreatedAt time.Time
}

// Store owns the workspace registry. The directory it creates for a session
// is the exclusive root for all file operations scoped to that session.
type Store struct {
	mu   sync.Mutex
	base string
	dirs map[string]*Info
}

func NewStore(base string) *Store {
	return &Store{
		base: base,
		dirs: make(map[string]*Info),
	}
}

// PathFor returns the workspace directory for a session. Pure; no I/O.
func (s *Store) PathFor(id string) string {
	return filepath.Join(s.base, id)
}

// Create makes the workspace directory and registers it.
func (s *Store) Create(id string) (string, error) {
	dir := s.PathFor(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace for %s: %w", id, err)
	}
	s.mu.Lock()
	s.dirs[id] = &Info{ID: id, Path: dir, CreatedAt: time.Now()}
	s.mu.Unlock()
	logger.Info("workspace created", "session", id, "path", dir)
	return dir, nil
}

// GetOrCreate returns the existing workspace path, re-checking that the
// directory still exists on disk. A stale record (directory deleted out from
// under us) is discarded and the workspace recreated.
func (s *Store) GetOrCreate(id string) (string, error) {
	s.mu.Lock()
	info, ok := s.dirs[id]
	s.mu.Unlock()

	if ok {
		if _, err := os.Stat(info.Path); err == nil {
			return info.Path, nil
		}
		logger.Warn("workspace missing on disk, recreating", "session", id)
		s.mu.Lock()
		delete(s.dirs, id)
		s.mu.Unlock()
	}
	return s.Create(id)
}

// Delete removes the workspace directory tree and the record. Removing an
// already-absent directory is not an error.
func (s *Store) Delete(id string) error {
	dir := s.PathFor(id)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete workspace for %s: %w", id, err)
	}
	s.mu.Lock()
	delete(s.dirs, id)
	s.mu.Unlock()
	return nil
}

// All returns copies of every tracked workspace record.
func (s *Store) All() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Info, 0, len(s.dirs))
	for _, info := range s.dirs {
		result = append(result, *info)
	}
	return result
}

// SweepOld deletes workspaces created more than maxAgeHours ago and returns
// the count removed. A delete failure for one workspace is logged and does
// not stop the sweep.
func (s *Store) SweepOld(maxAgeHours int) int {
	maxAge := time.Duration(maxAgeHours) * time.Hour
	now := time.Now()

	s.mu.Lock()
	var expired []string
	for id, info := range s.dirs {
		if now.Sub(info.CreatedAt) > maxAge {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	removed := 0
	for _, id := range expired {
		if err := s.Delete(id); err != nil {
			logger.Error("workspace sweep delete failed", "session", id, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("swept old workspaces", "count", removed)
	}
	return removed
}

// SweepDisk removes directories under the base path whose modification time
// is older than maxAgeHours, regardless of in-memory records. Used by the
// one-shot sweep command, where the registry starts empty.
func (s *Store) SweepDisk(maxAgeHours int) (int, error) {
	maxAge := time.Duration(maxAgeHours) * time.Hour
	entries, err := os.ReadDir(s.base)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read workspace base %s: %w", s.base, err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(fi.ModTime()) <= maxAge {
			continue
		}
		if err := s.Delete(entry.Name()); err != nil {
			logger.Error("disk sweep delete failed", "dir", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
