package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/liamhamilton123/dashboard-builder/internal/logger"
	"github.com/liamhamilton123/dashboard-builder/internal/relay"
	"github.com/liamhamilton123/dashboard-builder/internal/validate"
	"github.com/liamhamilton123/dashboard-builder/internal/workspace"
	"github.com/liamhamilton123/dashboard-builder/internal/ws"
)

const maxFrameBytes = 4 * 1024 * 1024

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if s.cfg.CORSOrigin == "*" {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = []string{originHost(s.cfg.CORSOrigin)}
	}

	sock, err := websocket.Accept(w, r, opts)
	if err != nil {
		logger.Warn("websocket accept failed", "error", err)
		return
	}
	sock.SetReadLimit(maxFrameBytes)

	c := newConn(uuid.New().String()[:8], sock)
	s.conns.Add(c)
	defer func() {
		s.conns.Remove(c.id)
		c.shutdown()
		logger.Info("client disconnected", "conn", c.id)
	}()

	logger.Info("client connected", "conn", c.id, "remote", r.RemoteAddr)
	if err := c.send(ws.ConnectedEvent{Type: ws.TypeConnected, Message: "Connected to dashboard builder backend"}); err != nil {
		return
	}

	ctx := r.Context()
	for {
		_, data, err := sock.Read(ctx)
		if err != nil {
			return
		}
		s.handleFrame(ctx, c, data)
	}
}

// handleFrame routes one inbound frame. Never blocks on a chat turn: the
// relay's events are forwarded from a separate goroutine so stop frames can
// still be read mid-generation.
func (s *Server) handleFrame(ctx context.Context, c *conn, data []byte) {
	var env ws.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.sendError(c.session(), ws.ErrMessageParse, "Invalid message format", err, s.cfg.Dev)
		return
	}

	switch env.Type {
	case ws.TypeInit:
		s.handleInit(c, data)
	case ws.TypeMessage:
		s.handleMessage(ctx, c, data)
	case ws.TypeStop:
		s.handleStop(c, data)
	default:
		c.sendError(c.session(), ws.ErrUnknownMessageType, "Unknown message type: "+env.Type, nil, s.cfg.Dev)
	}
}

func (s *Server) handleInit(c *conn, data []byte) {
	var msg ws.InitMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(c.session(), ws.ErrMessageParse, "Invalid init message", err, s.cfg.Dev)
		return
	}
	if !validate.SessionID(msg.SessionID) {
		c.sendError(msg.SessionID, ws.ErrInvalidSessionID, "Invalid session ID", nil, s.cfg.Dev)
		return
	}
	// files is required on init, even if empty. A chat message may omit it.
	if msg.Files == nil || !validate.FileMap(msg.Files) {
		c.sendError(msg.SessionID, ws.ErrInvalidFiles, "Invalid files payload", nil, s.cfg.Dev)
		return
	}

	root, err := s.workspaces.GetOrCreate(msg.SessionID)
	if err != nil {
		c.sendError(msg.SessionID, ws.ErrInit, "Failed to initialize session", err, s.cfg.Dev)
		return
	}
	if err := workspace.Push(root, msg.Files); err != nil {
		c.sendError(msg.SessionID, ws.ErrInit, "Failed to initialize session", err, s.cfg.Dev)
		return
	}

	if s.sessions.Has(msg.SessionID) {
		s.sessions.Touch(msg.SessionID)
	} else {
		s.sessions.Create(msg.SessionID, root)
	}
	c.bind(msg.SessionID)

	if s.watcher != nil {
		if err := s.watcher.Watch(msg.SessionID, root); err != nil {
			logger.Warn("could not watch workspace", "session", msg.SessionID, "error", err)
		}
	}

	logger.Info("session initialized", "conn", c.id, "session", msg.SessionID, "files", len(msg.Files))
	if err := c.send(ws.CompleteEvent{Type: ws.TypeComplete, SessionID: msg.SessionID, Message: "Session initialized", Files: msg.Files}); err != nil {
		logger.Warn("could not deliver init ack", "conn", c.id, "error", err)
	}
}

func (s *Server) handleMessage(ctx context.Context, c *conn, data []byte) {
	var msg ws.ChatMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(c.session(), ws.ErrMessageParse, "Invalid chat message", err, s.cfg.Dev)
		return
	}
	if !validate.SessionID(msg.SessionID) {
		c.sendError(msg.SessionID, ws.ErrInvalidSessionID, "Invalid session ID", nil, s.cfg.Dev)
		return
	}
	if !validate.MessageText(msg.Message) {
		c.sendError(msg.SessionID, ws.ErrInvalidMessage, "Message must be non-empty and under the length limit", nil, s.cfg.Dev)
		return
	}
	if msg.Files != nil && !validate.FileMap(msg.Files) {
		c.sendError(msg.SessionID, ws.ErrInvalidFiles, "Invalid files payload", nil, s.cfg.Dev)
		return
	}

	root, err := s.workspaces.GetOrCreate(msg.SessionID)
	if err != nil {
		c.sendError(msg.SessionID, ws.ErrChat, "Failed to prepare workspace", err, s.cfg.Dev)
		return
	}
	if msg.Files != nil {
		if err := workspace.Push(root, msg.Files); err != nil {
			c.sendError(msg.SessionID, ws.ErrChat, "Failed to sync files", err, s.cfg.Dev)
			return
		}
	}

	if s.sessions.Has(msg.SessionID) {
		s.sessions.Touch(msg.SessionID)
	} else {
		s.sessions.Create(msg.SessionID, root)
	}
	c.bind(msg.SessionID)

	events := s.relay.Send(ctx, msg.SessionID, msg.Message, root)
	go s.forward(c, msg.SessionID, events)
}

// forward maps relay events onto wire frames one-to-one.
func (s *Server) forward(c *conn, sessionID string, events <-chan relay.Event) {
	for ev := range events {
		var err error
		switch ev.Type {
		case relay.EventStream:
			err = c.send(ws.StreamEvent{Type: ws.TypeStream, SessionID: sessionID, Delta: ev.Delta})
		case relay.EventToolStart:
			err = c.send(ws.ToolStartEvent{Type: ws.TypeToolStart, SessionID: sessionID, Tool: ev.Tool, Input: marshalRaw(ev.Input)})
		case relay.EventToolResult:
			err = c.send(ws.ToolResultEvent{Type: ws.TypeToolResult, SessionID: sessionID, Tool: ev.Tool, Result: marshalRaw(ev.Result)})
		case relay.EventComplete:
			err = c.send(ws.CompleteEvent{Type: ws.TypeComplete, SessionID: sessionID, Message: ev.Message, Files: ev.Files})
		case relay.EventCancelled:
			err = c.send(ws.CancelledEvent{Type: ws.TypeCancelled, SessionID: sessionID, Message: ev.Message})
		case relay.EventError:
			c.sendError(sessionID, ws.ErrChat, ev.Err, nil, s.cfg.Dev)
		}
		if err != nil {
			logger.Warn("could not deliver event", "conn", c.id, "type", string(ev.Type), "error", err)
		}
	}
}

func (s *Server) handleStop(c *conn, data []byte) {
	var msg ws.StopMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(c.session(), ws.ErrMessageParse, "Invalid stop message", err, s.cfg.Dev)
		return
	}
	if !validate.SessionID(msg.SessionID) {
		c.sendError(msg.SessionID, ws.ErrInvalidSessionID, "Invalid session ID", nil, s.cfg.Dev)
		return
	}

	if s.relay.Stop(msg.SessionID) {
		// The cancelled turn emits its own terminal event through forward.
		logger.Info("stop requested", "conn", c.id, "session", msg.SessionID)
		return
	}
	if err := c.send(ws.CompleteEvent{Type: ws.TypeComplete, SessionID: msg.SessionID, Message: "Stop requested"}); err != nil {
		logger.Warn("could not deliver stop ack", "conn", c.id, "error", err)
	}
}

func marshalRaw(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
