package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/locopilot/locopilot/internal/provider"
)

const (
	DefaultMaxTokenLimit          = 4000
	DefaultSummarizationThreshold = 3000

	// charsPerToken is the fixed heuristic used by EstimatedTokens.
	charsPerToken = 4

	summaryRecentTurns = 10
	summaryRecentEdits = 5
	summaryTurnChars   = 100

	summarizePrompt = "Summarize this conversation concisely:\n"
	summaryPrefix   = "[Summary] "
	noHistory       = "No conversation history."
)

// LanguageModel is the text capability Memory summarizes with.
// provider.LLM satisfies it.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Memory tracks one session: the conversation (held by a ConversationStore),
// the file edits made, free-form project context and the session State.
//
// Memory does no locking. Callers sharing an instance across goroutines
// must serialize access.
type Memory struct {
	llm       LanguageModel
	store     ConversationStore
	maxTokens int
	threshold int
	logger    *slog.Logger

	edits          []FileEdit
	projectContext map[string]any
	state          *State
	now            func() time.Time
}

// MemoryOption configures NewMemory.
type MemoryOption func(*Memory)

func WithMaxTokenLimit(n int) MemoryOption {
	return func(m *Memory) { m.maxTokens = n }
}

func WithSummarizationThreshold(n int) MemoryOption {
	return func(m *Memory) { m.threshold = n }
}

// WithStore replaces the default in-memory BufferStore.
func WithStore(s ConversationStore) MemoryOption {
	return func(m *Memory) { m.store = s }
}

func WithLogger(l *slog.Logger) MemoryOption {
	return func(m *Memory) { m.logger = l }
}

// NewMemory creates a Memory. It fails when llm is nil or when the
// summarization threshold is larger than the max token limit.
func NewMemory(llm LanguageModel, opts ...MemoryOption) (*Memory, error) {
	if llm == nil {
		return nil, ErrNilLanguageModel
	}
	m := &Memory{
		llm:            llm,
		maxTokens:      DefaultMaxTokenLimit,
		threshold:      DefaultSummarizationThreshold,
		projectContext: map[string]any{},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.threshold > m.maxTokens {
		return nil, fmt.Errorf("%w: threshold %d > limit %d", ErrThresholdExceedsLimit, m.threshold, m.maxTokens)
	}
	if m.store == nil {
		m.store = NewBufferStore()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.state = newStateWithClock(m.now)
	m.logger = m.logger.With("session", m.state.ID)
	return m, nil
}

func (m *Memory) State() *State               { return m.state }
func (m *Memory) MaxTokenLimit() int          { return m.maxTokens }
func (m *Memory) SummarizationThreshold() int { return m.threshold }

// Turns returns the stored conversation, oldest first.
func (m *Memory) Turns() []Turn { return m.store.Turns() }

func (m *Memory) AddUserMessage(text string) {
	m.store.AddUserMessage(text)
}

func (m *Memory) AddAIMessage(text string) {
	m.store.AddAIMessage(text)
}

// AddFileEdit appends an edit record. content is cut to PreviewLimit
// characters; an empty content stores no preview. An action outside
// create/edit/delete returns *InvalidActionError and records nothing.
func (m *Memory) AddFileEdit(path, action, content string) error {
	a, err := ParseAction(action)
	if err != nil {
		return err
	}
	m.edits = append(m.edits, FileEdit{
		Path:           path,
		Action:         a,
		Timestamp:      m.now(),
		ContentPreview: truncateRunes(content, PreviewLimit),
	})
	m.logger.Debug("file edit recorded", "path", path, "action", a)
	return nil
}

// FileEdits returns the edit log, oldest first.
func (m *Memory) FileEdits() []FileEdit { return slices.Clone(m.edits) }

// SetProjectContext replaces the project context wholesale.
func (m *Memory) SetProjectContext(ctx map[string]any) {
	m.projectContext = maps.Clone(ctx)
	if m.projectContext == nil {
		m.projectContext = map[string]any{}
	}
}

// ProjectContext returns a copy of the project context.
func (m *Memory) ProjectContext() map[string]any { return maps.Clone(m.projectContext) }

// ContextSummary renders the last 10 turns (each cut to 100 characters)
// and the last 5 file edits.
func (m *Memory) ContextSummary() string {
	turns := m.store.Turns()
	if len(turns) == 0 {
		return noHistory
	}

	var sb strings.Builder
	sb.WriteString("Recent conversation:\n")
	for _, t := range lastN(turns, summaryRecentTurns) {
		fmt.Fprintf(&sb, "%s: %s...\n", roleLabel(t.Role), truncateRunes(t.Text, summaryTurnChars))
	}

	if len(m.edits) > 0 {
		fmt.Fprintf(&sb, "\nRecent file edits: %d files modified\n", len(m.edits))
		for _, e := range lastN(m.edits, summaryRecentEdits) {
			fmt.Fprintf(&sb, "- %s %s\n", e.Action, e.Path)
		}
	}
	return sb.String()
}

// FormattedHistory renders every turn in full, separated by blank lines.
func (m *Memory) FormattedHistory() string {
	return formatTurns(m.store.Turns())
}

// EstimatedTokens approximates context usage as total characters / 4.
func (m *Memory) EstimatedTokens() int {
	total := 0
	for _, t := range m.store.Turns() {
		total += utf8.RuneCountInString(t.Text)
	}
	return total / charsPerToken
}

// ShouldSummarize reports whether EstimatedTokens is above the threshold.
func (m *Memory) ShouldSummarize() bool {
	return m.EstimatedTokens() > m.threshold
}

// ForceSummarize evicts the raw buffer and, if it held anything, replaces
// it with a single "[Summary] " assistant turn produced by the language
// model. An empty reply yields a bare "[Summary] " turn. The buffer is
// emptied before the model is called: on error the evicted turns are gone
// and the error is returned.
func (m *Memory) ForceSummarize(ctx context.Context) error {
	evicted := m.store.ResetBuffer()
	if len(evicted) == 0 {
		return nil
	}

	summary, err := m.llm.Generate(ctx, summarizePrompt+formatTurns(evicted))
	if errors.Is(err, provider.ErrEmptyResponse) {
		// An empty summary is still a summary.
		summary, err = "", nil
	}
	if err != nil {
		m.logger.Warn("summarization failed, evicted turns dropped",
			"turns", len(evicted), "error", err)
		return fmt.Errorf("summarize %d turns: %w", len(evicted), err)
	}

	m.store.AddAIMessage(summaryPrefix + summary)
	m.logger.Info("conversation summarized", "turns", len(evicted), "summary_chars", utf8.RuneCountInString(summary))
	return nil
}

// Clear empties the conversation, the edit log and the project context,
// in that order. The session State is kept.
func (m *Memory) Clear() {
	m.store.Clear()
	m.edits = nil
	clear(m.projectContext)
}

func roleLabel(r provider.Role) string {
	if r == provider.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

func formatTurns(turns []Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, roleLabel(t.Role)+": "+t.Text)
	}
	return strings.Join(parts, "\n\n")
}

func lastN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
