package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/liamhamilton123/dashboard-builder/internal/logger"
	"github.com/liamhamilton123/dashboard-builder/internal/ws"
)

const sendTimeout = 5 * time.Second

// socket is the subset of *websocket.Conn the server uses. Tests substitute
// a fake to drive the handlers without a network.
type socket interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
	CloseNow() error
}

// conn is one client connection. Writes are serialized; a connection is
// considered alive until a heartbeat round trip fails.
type conn struct {
	id   string
	sock socket

	mu        sync.Mutex
	sessionID string
	alive     bool
	closed    bool
}

func newConn(id string, sock socket) *conn {
	return &conn{id: id, sock: sock, alive: true}
}

func (c *conn) bind(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}

func (c *conn) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *conn) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.mu.Unlock()
}

// aliveAndReset returns the current aliveness and clears it; the next
// successful pong sets it again.
func (c *conn) aliveAndReset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.alive
	c.alive = false
	return was
}

// send marshals v and writes it as one text frame. Safe from any goroutine;
// no-op after shutdown.
func (c *conn) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := c.sock.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// shutdown marks the connection closed so late sends become no-ops, then
// tears down the socket.
func (c *conn) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.sock.CloseNow()
}

// connRegistry tracks live connections for heartbeat and file-change pushes.
type connRegistry struct {
	mu    sync.RWMutex
	conns map[string]*conn
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[string]*conn)}
}

func (r *connRegistry) Add(c *conn) {
	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()
}

func (r *connRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

func (r *connRegistry) All() []*conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// ForSession returns connections bound to the given session.
func (r *connRegistry) ForSession(sessionID string) []*conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*conn
	for _, c := range r.conns {
		if c.session() == sessionID {
			out = append(out, c)
		}
	}
	return out
}

// sendError emits an error frame with a stable kind tag, echoing the
// sessionId of the message that failed so the client can correlate. Detail
// from err is attached only in dev mode; production clients get the generic
// message.
func (c *conn) sendError(sessionID, kind, msg string, err error, dev bool) {
	if err != nil {
		logger.Error("request failed", "conn", c.id, "kind", kind, "error", err)
		if dev {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
	}
	if sendErr := c.send(ws.ErrorEvent{Type: ws.TypeError, SessionID: sessionID, Error: kind, Message: msg}); sendErr != nil {
		logger.Warn("could not deliver error frame", "conn", c.id, "error", sendErr)
	}
}
