// Package server runs the HTTP/WebSocket front of the dashboard builder: it
// accepts chat connections, routes protocol frames to the relay, keeps
// connections alive with heartbeats, and sweeps idle sessions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/liamhamilton123/dashboard-builder/internal/logger"
	"github.com/liamhamilton123/dashboard-builder/internal/relay"
	"github.com/liamhamilton123/dashboard-builder/internal/session"
	"github.com/liamhamilton123/dashboard-builder/internal/workspace"
	"github.com/liamhamilton123/dashboard-builder/internal/ws"
)

const (
	defaultHeartbeat = 30 * time.Second
	sweepInterval    = time.Hour
	pingTimeout      = 5 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// Config holds the server's runtime settings.
type Config struct {
	Addr       string
	CORSOrigin string
	Dev        bool

	// HeartbeatInterval is how often connections are pinged; a connection
	// that misses a full interval is dropped. Zero means the 30s default.
	HeartbeatInterval time.Duration

	// WatchWorkspaces enables pushing files events when workspace contents
	// change outside a chat turn.
	WatchWorkspaces bool

	SessionMaxIdleHours  int
	WorkspaceMaxAgeHours int
}

// Server wires connections, sessions, workspaces and the relay together.
type Server struct {
	cfg        Config
	relay      *relay.Relay
	sessions   *session.Registry
	workspaces *workspace.Store
	limiter    *RateLimiter
	watcher    *workspace.Watcher
	conns      *connRegistry
}

func New(cfg Config, rl *relay.Relay, sessions *session.Registry, workspaces *workspace.Store) (*Server, error) {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeat
	}
	s := &Server{
		cfg:        cfg,
		relay:      rl,
		sessions:   sessions,
		workspaces: workspaces,
		limiter:    NewRateLimiter(10, 20),
		conns:      newConnRegistry(),
	}
	if cfg.WatchWorkspaces {
		w, err := workspace.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("start workspace watcher: %w", err)
		}
		s.watcher = w
	}
	return s, nil
}

// Handler returns the server's HTTP handler: health endpoint plus the chat
// WebSocket, behind CORS and rate limiting.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws/chat", s.handleChatWS)
	return s.corsMiddleware(s.limiter.Middleware(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	go s.heartbeatLoop(ctx)
	go s.sweepLoop(ctx)
	if s.watcher != nil {
		go s.watchLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		if s.watcher != nil {
			s.watcher.Close()
		}
		for _, c := range s.conns.All() {
			c.shutdown()
		}
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"ok":       true,
		"sessions": len(s.sessions.All()),
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// heartbeatLoop pings every connection once per interval and drops any that
// missed the previous round trip.
func (s *Server) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.heartbeatSweep(ctx)
		}
	}
}

func (s *Server) heartbeatSweep(ctx context.Context) {
	for _, c := range s.conns.All() {
		if !c.aliveAndReset() {
			logger.Info("dropping unresponsive connection", "conn", c.id)
			s.conns.Remove(c.id)
			c.shutdown()
			continue
		}
		go func(c *conn) {
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			if err := c.sock.Ping(pingCtx); err == nil {
				c.markAlive()
			}
		}(c)
	}
}

// sweepLoop retires idle sessions and their workspaces once an hour.
func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Server) sweep() {
	for _, id := range s.sessions.SweepIdle(s.cfg.SessionMaxIdleHours) {
		s.relay.Clear(id)
		if s.watcher != nil {
			s.watcher.Unwatch(s.workspaces.PathFor(id))
		}
	}
	s.workspaces.SweepOld(s.cfg.WorkspaceMaxAgeHours)
}

// watchLoop pushes a files event to a session's connections whenever its
// workspace changes on disk outside a chat turn.
func (s *Server) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sessionID, ok := <-s.watcher.Changes():
			if !ok {
				return
			}
			meta, found := s.sessions.Get(sessionID)
			if !found {
				continue
			}
			files, err := workspace.Pull(meta.WorkspacePath)
			if err != nil {
				logger.Warn("could not read changed workspace", "session", sessionID, "error", err)
				continue
			}
			frame := ws.FilesEvent{Type: ws.TypeFiles, SessionID: sessionID, Files: files}
			for _, c := range s.conns.ForSession(sessionID) {
				if err := c.send(frame); err != nil {
					logger.Warn("could not deliver files event", "conn", c.id, "error", err)
				}
			}
		}
	}
}

// originHost reduces a configured origin URL to the host pattern the
// WebSocket handshake checks against.
func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}
