// Package session tracks in-memory metadata for active chat sessions.
// State is process-lifetime only — a cache, never a source of truth.
package session

import (
	"sync"
	"time"

	"github.com/liamhamilton123/dashboard-builder/internal/logger"
)

// Meta holds the metadata for one session.
type Meta struct {
	ID            string
	WorkspacePath string
	CreatedAt     time.Time
	LastActivity  time.Time
}

// Registry owns the session map. All mutation goes through its methods.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Meta
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Meta),
	}
}

// Create records metadata for a new session. Callers check Has first;
// Create overwrites unconditionally.
func (r *Registry) Create(id, workspacePath string) Meta {
	now := time.Now()
	m := &Meta{
		ID:            id,
		WorkspacePath: workspacePath,
		CreatedAt:     now,
		LastActivity:  now,
	}
	r.mu.Lock()
	r.sessions[id] = m
	r.mu.Unlock()
	logger.Info("session created", "session", id)
	return *m
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// Get returns a copy of the session's metadata.
func (r *Registry) Get(id string) (Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.sessions[id]
	if !ok {
		return Meta{}, false
	}
	return *m, true
}

// Touch updates the session's last-activity timestamp. No-op if absent.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.sessions[id]; ok {
		m.LastActivity = time.Now()
	}
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// All returns copies of every session's metadata.
func (r *Registry) All() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Meta, 0, len(r.sessions))
	for _, m := range r.sessions {
		result = append(result, *m)
	}
	return result
}

// SweepIdle removes sessions idle for longer than maxIdleHours and returns
// the removed identifiers so callers can release coupled state (conversation
// history, workspaces).
func (r *Registry) SweepIdle(maxIdleHours int) []string {
	maxIdle := time.Duration(maxIdleHours) * time.Hour
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for id, m := range r.sessions {
		if now.Sub(m.LastActivity) > maxIdle {
			delete(r.sessions, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		logger.Info("swept idle sessions", "count", len(removed))
	}
	return removed
}
