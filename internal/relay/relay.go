// Package relay drives chat turns: it owns per-session conversation history,
// forwards the latest user turn (with a snapshot of workspace files as
// context) to the LLM provider, streams text back, and on completion extracts
// generated code into the workspace.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/liamhamilton123/dashboard-builder/internal/llm"
	"github.com/liamhamilton123/dashboard-builder/internal/logger"
	"github.com/liamhamilton123/dashboard-builder/internal/store"
	"github.com/liamhamilton123/dashboard-builder/internal/workspace"
)

// EventType tags one unit of the stream protocol a turn yields.
type EventType string

const (
	EventStream     EventType = "stream"
	EventToolStart  EventType = "tool_start"  // reserved
	EventToolResult EventType = "tool_result" // reserved
	EventComplete   EventType = "complete"
	EventCancelled  EventType = "cancelled"
	EventError      EventType = "error"
)

// Event is the tagged variant the relay yields while processing a turn.
// Exactly one terminal event (complete, cancelled, or error) ends each turn.
type Event struct {
	Type    EventType
	Delta   string
	Tool    string
	Input   any
	Result  any
	Message string
	Files   map[string]string
	Err     string
}

// turn tracks one in-flight streaming call so stop can reach it.
type turn struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Relay holds per-session conversation history and runs turns against the
// provider. Turns on the same session are serialized: a second Send waits
// for the first to finish rather than interleaving history appends.
type Relay struct {
	provider  llm.Provider
	model     string
	maxTokens int

	mu        sync.Mutex
	histories map[string][]llm.Message
	inflight  map[string]*turn

	transcript *store.Store // optional audit log, may be nil
}

func New(provider llm.Provider, model string, maxTokens int) *Relay {
	return &Relay{
		provider:  provider,
		model:     model,
		maxTokens: maxTokens,
		histories: make(map[string][]llm.Message),
		inflight:  make(map[string]*turn),
	}
}

// SetTranscript attaches an optional transcript store. Write-only: failures
// are logged, never surfaced to the turn.
func (r *Relay) SetTranscript(st *store.Store) {
	r.transcript = st
}

// History returns a copy of a session's conversation history.
func (r *Relay) History(sessionID string) []llm.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]llm.Message(nil), r.histories[sessionID]...)
}

// Clear drops a session's conversation history.
func (r *Relay) Clear(sessionID string) {
	r.mu.Lock()
	delete(r.histories, sessionID)
	r.mu.Unlock()
	logger.Info("cleared history", "session", sessionID)
}

// Stop cancels the session's in-flight turn, if any, and reports whether one
// was running. The cancelled turn emits its own terminal cancelled event.
func (r *Relay) Stop(sessionID string) bool {
	r.mu.Lock()
	t := r.inflight[sessionID]
	r.mu.Unlock()
	if t == nil {
		return false
	}
	t.cancel()
	return true
}

// Send runs one chat turn and returns its event stream. The channel carries
// zero or more stream events followed by exactly one terminal event, then
// closes. Send never blocks the caller; if another turn is already running
// for this session, the new turn waits its turn.
func (r *Relay) Send(ctx context.Context, sessionID, userText, workspacePath string) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		t := r.acquire(ctx, sessionID)
		if t == nil {
			events <- Event{Type: EventCancelled, Message: "Request cancelled before start"}
			return
		}
		defer r.release(sessionID, t)
		r.run(t, sessionID, userText, workspacePath, events)
	}()
	return events
}

// acquire waits until no other turn is running for the session, then
// registers a new one. Returns nil if ctx dies while waiting.
func (r *Relay) acquire(ctx context.Context, sessionID string) *turn {
	for {
		r.mu.Lock()
		prev := r.inflight[sessionID]
		if prev == nil {
			turnCtx, cancel := context.WithCancel(ctx)
			t := &turn{ctx: turnCtx, cancel: cancel, done: make(chan struct{})}
			r.inflight[sessionID] = t
			r.mu.Unlock()
			return t
		}
		r.mu.Unlock()
		select {
		case <-prev.done:
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Relay) release(sessionID string, t *turn) {
	r.mu.Lock()
	if r.inflight[sessionID] == t {
		delete(r.inflight, sessionID)
	}
	r.mu.Unlock()
	t.cancel()
	close(t.done)
}

// run executes one turn. All failures become a single terminal event; no
// error escapes this boundary.
func (r *Relay) run(t *turn, sessionID, userText, workspacePath string, events chan<- Event) {
	// File context is an enhancement, not a correctness requirement: on read
	// failure, proceed without it.
	var files map[string]string
	if contents, err := workspace.Pull(workspacePath); err != nil {
		logger.Warn("could not read workspace for context", "session", sessionID, "error", err)
	} else {
		files = contents
	}

	composed := composeUserTurn(userText, files)

	r.mu.Lock()
	r.histories[sessionID] = append(r.histories[sessionID], llm.Message{Role: llm.RoleUser, Content: composed})
	snapshot := append([]llm.Message(nil), r.histories[sessionID]...)
	r.mu.Unlock()

	stream, err := r.provider.Stream(t.ctx, llm.Request{
		System:    systemPrompt,
		Messages:  snapshot,
		Model:     r.model,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		// The user turn stays in history so a retry resends full context.
		events <- Event{Type: EventError, Err: fmt.Sprintf("provider call failed: %v", err)}
		return
	}

	for {
		delta, ok := stream.Next()
		if !ok {
			break
		}
		events <- Event{Type: EventStream, Delta: delta}
	}

	if err := stream.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("turn cancelled", "session", sessionID)
			events <- Event{Type: EventCancelled, Message: "Generation stopped"}
			return
		}
		events <- Event{Type: EventError, Err: fmt.Sprintf("provider stream failed: %v", err)}
		return
	}

	full := stream.Text()

	r.mu.Lock()
	r.histories[sessionID] = append(r.histories[sessionID], llm.Message{Role: llm.RoleAssistant, Content: full})
	r.mu.Unlock()

	if r.transcript != nil {
		if err := r.transcript.AppendTurn(sessionID, composed, full); err != nil {
			logger.Warn("transcript append failed", "session", sessionID, "error", err)
		}
	}

	ExtractDashboard(full, workspacePath)

	updated, err := workspace.Pull(workspacePath)
	if err != nil {
		events <- Event{Type: EventError, Err: fmt.Sprintf("read workspace after turn: %v", err)}
		return
	}

	events <- Event{Type: EventComplete, Message: full, Files: updated}
}

// composeUserTurn appends the workspace file map as a readable block so the
// model sees prior generated code without a tool-call round trip.
func composeUserTurn(userText string, files map[string]string) string {
	if len(files) == 0 {
		return userText
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(userText)
	b.WriteString("\n\n**Current files:**\n")
	for _, name := range names {
		b.WriteString("\n### ")
		b.WriteString(name)
		b.WriteString("\n```typescript\n")
		b.WriteString(files[name])
		b.WriteString("\n```\n")
	}
	return b.String()
}
