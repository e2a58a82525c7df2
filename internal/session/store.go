package session

import (
	"slices"

	"github.com/locopilot/locopilot/internal/provider"
)

// Turn is one user or assistant message in the conversation history.
type Turn struct {
	Role provider.Role
	Text string
}

// ConversationStore holds the turns of a conversation. Memory only appends,
// reads back and evicts; it makes no assumption about how the store
// condenses or persists what it holds.
type ConversationStore interface {
	AddUserMessage(text string)
	AddAIMessage(text string)

	// Turns returns all stored turns, oldest first.
	Turns() []Turn

	// Buffer returns the raw, not yet summarized turns.
	Buffer() []Turn

	// ResetBuffer empties the raw buffer and returns what it held.
	ResetBuffer() []Turn

	Clear()
}

// BufferStore is the in-memory ConversationStore. Its raw buffer and its
// turn list are the same slice, so ResetBuffer empties the history.
type BufferStore struct {
	turns []Turn
}

func NewBufferStore() *BufferStore {
	return &BufferStore{}
}

func (b *BufferStore) AddUserMessage(text string) {
	b.turns = append(b.turns, Turn{Role: provider.RoleUser, Text: text})
}

func (b *BufferStore) AddAIMessage(text string) {
	b.turns = append(b.turns, Turn{Role: provider.RoleAssistant, Text: text})
}

func (b *BufferStore) Turns() []Turn  { return slices.Clone(b.turns) }
func (b *BufferStore) Buffer() []Turn { return slices.Clone(b.turns) }

func (b *BufferStore) ResetBuffer() []Turn {
	evicted := b.turns
	b.turns = nil
	return evicted
}

func (b *BufferStore) Clear() {
	b.turns = nil
}

// Messages converts turns to provider messages for a chat request.
func Messages(turns []Turn) []provider.Message {
	msgs := make([]provider.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, provider.TextMessage(t.Role, t.Text))
	}
	return msgs
}
