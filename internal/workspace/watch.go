package workspace

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/liamhamilton123/dashboard-builder/internal/logger"
)

const watchDebounce = 250 * time.Millisecond

// Watcher reports external edits inside watched workspace directories, so
// connected clients can be sent a fresh file map. Top-level files only —
// generated dashboards live at the workspace root.
type Watcher struct {
	fw      *fsnotify.Watcher
	changes chan string // session IDs, debounced

	mu       sync.Mutex
	sessions map[string]string      // watched dir -> session ID
	pending  map[string]*time.Timer // session ID -> debounce timer
	closed   bool
}

func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:       fw,
		changes:  make(chan string, 16),
		sessions: make(map[string]string),
		pending:  make(map[string]*time.Timer),
	}
	go w.loop()
	return w, nil
}

// Watch starts watching a session's workspace directory. Watching the same
// directory twice is a no-op.
func (w *Watcher) Watch(sessionID, dir string) error {
	w.mu.Lock()
	if _, ok := w.sessions[dir]; ok {
		w.mu.Unlock()
		return nil
	}
	w.sessions[dir] = sessionID
	w.mu.Unlock()
	return w.fw.Add(dir)
}

// Unwatch stops watching a directory.
func (w *Watcher) Unwatch(dir string) {
	w.mu.Lock()
	delete(w.sessions, dir)
	w.mu.Unlock()
	_ = w.fw.Remove(dir)
}

// Changes yields session IDs whose workspaces changed on disk.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for _, t := range w.pending {
		t.Stop()
	}
	w.mu.Unlock()
	return w.fw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if strings.HasSuffix(ev.Name, "~") {
				continue // editor temp files
			}
			w.mu.Lock()
			id, ok := w.sessions[filepath.Dir(ev.Name)]
			w.mu.Unlock()
			if ok {
				w.schedule(id)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn("workspace watch error", "error", err)
		}
	}
}

// schedule coalesces bursts of events into one change notification.
func (w *Watcher) schedule(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[sessionID]; ok {
		t.Reset(watchDebounce)
		return
	}
	w.pending[sessionID] = time.AfterFunc(watchDebounce, func() {
		w.mu.Lock()
		delete(w.pending, sessionID)
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		select {
		case w.changes <- sessionID:
		default:
			// Consumer is behind; drop — the next edit will re-notify.
		}
	})
}
