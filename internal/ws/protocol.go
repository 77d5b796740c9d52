// Package ws defines the wire protocol between the browser client and the
// dashboard builder backend. Every frame is a JSON object with a type field
// for routing.
package ws

import "encoding/json"

// Message types for the chat WebSocket protocol.
const (
	// Client → Server
	TypeInit    = "init"
	TypeMessage = "message"
	TypeStop    = "stop"

	// Server → Client
	TypeConnected  = "connected"
	TypeStream     = "stream"
	TypeToolStart  = "tool_start"
	TypeToolResult = "tool_result"
	TypeComplete   = "complete"
	TypeCancelled  = "cancelled"
	TypeError      = "error"
	TypeFiles      = "files"
)

// Error kinds carried in ErrorEvent. The client switches on these to decide
// whether a failure is retryable or a bug on its side.
const (
	ErrMessageParse       = "MessageParseError"
	ErrInvalidSessionID   = "InvalidSessionId"
	ErrInvalidFiles       = "InvalidFiles"
	ErrInvalidMessage     = "InvalidMessage"
	ErrInit               = "InitError"
	ErrChat               = "ChatError"
	ErrProvider           = "ProviderError"
	ErrUnknownMessageType = "UnknownMessageType"
)

// Envelope wraps every frame with a type field for routing.
type Envelope struct {
	Type string `json:"type"`
}

// InitMsg binds the connection to a session and seeds its workspace.
type InitMsg struct {
	Type      string            `json:"type"`
	SessionID string            `json:"sessionId"`
	Files     map[string]string `json:"files"`
}

// ChatMsg carries one user chat turn, optionally with updated files to sync
// into the workspace first.
type ChatMsg struct {
	Type      string            `json:"type"`
	SessionID string            `json:"sessionId"`
	Message   string            `json:"message"`
	Files     map[string]string `json:"files,omitempty"`
}

// StopMsg asks the server to cancel the session's in-flight generation.
type StopMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// ConnectedEvent greets the client right after the handshake.
type ConnectedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StreamEvent carries one incremental text fragment of the assistant's reply.
type StreamEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Delta     string `json:"delta"`
}

// ToolStartEvent announces a tool invocation during generation.
type ToolStartEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Tool      string          `json:"tool"`
	Input     json.RawMessage `json:"input,omitempty"`
}

// ToolResultEvent carries a tool invocation's outcome.
type ToolResultEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Tool      string          `json:"tool"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// CompleteEvent ends a successful turn (or acknowledges init/stop) with the
// full message and the session's current file map.
type CompleteEvent struct {
	Type      string            `json:"type"`
	SessionID string            `json:"sessionId,omitempty"`
	Message   string            `json:"message"`
	Files     map[string]string `json:"files,omitempty"`
}

// CancelledEvent ends a turn that was stopped before completion.
type CancelledEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

// ErrorEvent reports a failure. Error is a stable kind tag; Message is
// human-readable detail.
type ErrorEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

// FilesEvent pushes the session's current file map when the workspace
// changes outside a chat turn.
type FilesEvent struct {
	Type      string            `json:"type"`
	SessionID string            `json:"sessionId"`
	Files     map[string]string `json:"files"`
}
