package tui

import (
	"io"
	"strings"
	"sync"
)

// BufferIO is a silent IO implementation that replays scripted input lines
// and captures everything written to it. Used for scripted sessions and tests.
type BufferIO struct {
	mu       sync.Mutex
	inputs   []string
	text     strings.Builder
	replies  []string
	system   []string
	errors   []string
	tokens   int
	ctxUsed  int
	ctxTotal int
	mode     string
}

var _ IO = (*BufferIO)(nil)

// NewBufferIO creates a BufferIO that returns inputs one by one from
// ReadInput, then io.EOF.
func NewBufferIO(inputs ...string) *BufferIO {
	return &BufferIO{inputs: inputs}
}

func (b *BufferIO) ReadInput() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.inputs) == 0 {
		return "", io.EOF
	}
	line := b.inputs[0]
	b.inputs = b.inputs[1:]
	return line, nil
}

func (b *BufferIO) UserMessage(_ string) {}
func (b *BufferIO) ThinkingStart()       {}

func (b *BufferIO) TextDelta(delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.WriteString(delta)
}

func (b *BufferIO) TextDone(fullText string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies = append(b.replies, fullText)
}

func (b *BufferIO) SystemMessage(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.system = append(b.system, text)
}

func (b *BufferIO) Error(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errors = append(b.errors, msg)
}

func (b *BufferIO) SetTokens(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = n
}

func (b *BufferIO) SetContextInfo(used, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctxUsed, b.ctxTotal = used, total
}

func (b *BufferIO) SetMode(mode string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = mode
}

// Output returns all streamed text deltas.
func (b *BufferIO) Output() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text.String()
}

// Replies returns the full text of every completed reply.
func (b *BufferIO) Replies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.replies...)
}

// SystemMessages returns every system notice, in order.
func (b *BufferIO) SystemMessages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.system...)
}

// Errors returns every error message, in order.
func (b *BufferIO) Errors() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.errors...)
}

// Mode returns the last mode set.
func (b *BufferIO) Mode() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// ContextInfo returns the last context usage reported.
func (b *BufferIO) ContextInfo() (used, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctxUsed, b.ctxTotal
}

// Tokens returns the last output token count reported.
func (b *BufferIO) Tokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}
