// Package llm defines the streaming completion interface the chat relay
// depends on, plus the Anthropic implementation and a scripted provider for
// tests and offline runs.
package llm

import (
	"context"
	"fmt"
)

// Role values for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn in a conversation.
type Message struct {
	Role    string
	Content string
}

// Request is one streaming completion call.
type Request struct {
	System    string
	Messages  []Message
	Model     string
	MaxTokens int
}

// Provider streams completions. Stream returns as soon as the upstream call
// is accepted; fragments arrive on the returned Stream until the provider
// signals stop or the context is cancelled.
type Provider interface {
	Stream(ctx context.Context, req Request) (*Stream, error)
	Name() string
}

// NewProvider creates a provider by name.
func NewProvider(name, apiKey string) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	case "dummy":
		return NewDummyProvider(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
