// Package provider defines the unified interface and shared types for all LLM providers.
// Each provider adapter (openai.go, anthropic.go) implements the Provider interface,
// normalizing vendor-specific streaming responses into a unified Event sequence.
package provider

import (
	"context"
)

// ── Message types ────────────────────────────────────────────────────────────

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ContentType string

const (
	ContentTypeText ContentType = "text"
)

// Content is a single content block within a message.
type Content struct {
	Type ContentType
	Text string
}

// Message is a single message in the conversation history.
type Message struct {
	Role    Role
	Content []Content
}

// TextMessage builds a single-block text message.
func TextMessage(role Role, text string) Message {
	return Message{
		Role:    role,
		Content: []Content{{Type: ContentTypeText, Text: text}},
	}
}

// Text returns the concatenated text blocks of the message.
func (m Message) Text() string {
	if len(m.Content) == 1 {
		return m.Content[0].Text
	}
	var s string
	for _, c := range m.Content {
		if c.Type == ContentTypeText {
			s += c.Text
		}
	}
	return s
}

// ── Request types ────────────────────────────────────────────────────────────

// ChatRequest is the unified request format sent to a provider.
type ChatRequest struct {
	Model        string
	Messages     []Message
	SystemPrompt string
	MaxTokens    int
}

// ── Event types (streaming output) ───────────────────────────────────────────

type EventType int

const (
	// EventTextDelta: incremental text output from the LLM, rendered in real time.
	EventTextDelta EventType = iota

	// EventDone: end of this message turn, includes token usage.
	EventDone

	// EventError: an error occurred.
	EventError
)

// Event is the unified streaming event emitted by a provider.
type Event struct {
	Type EventType

	// EventTextDelta
	TextDelta string

	// EventDone
	Usage *Usage

	// EventError
	Error error
}

// Usage records token consumption for an API call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ── Provider interface ───────────────────────────────────────────────────────

// Provider is the unified interface for all LLM providers.
// Implementors are responsible for:
// 1. Converting the unified ChatRequest into the provider's API request format
// 2. Converting the provider's streaming response into a unified Event sequence
// 3. Handling provider-specific error codes
type Provider interface {
	// Chat initiates a streaming conversation.
	// The returned channel emits Events until EventDone or EventError, then closes.
	// The caller must fully consume the channel to avoid goroutine leaks.
	Chat(ctx context.Context, req *ChatRequest) (<-chan Event, error)

	// Name returns the provider identifier, e.g. "ollama", "anthropic", "openai".
	Name() string

	// Models returns the list of supported models.
	Models() []string

	// DefaultModel returns the default model.
	DefaultModel() string

	// ContextWindow returns the default context window size for the current model.
	ContextWindow() int
}
