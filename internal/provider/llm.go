package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrEmptyResponse is returned by Generate when the stream finished without text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// LLM exposes a Provider as a single-prompt text capability:
// Generate blocks for the full reply, Stream yields text chunks lazily.
type LLM struct {
	Provider  Provider
	Model     string // empty = provider default
	System    string
	MaxTokens int
}

// NewLLM wraps p. An empty model uses p.DefaultModel().
func NewLLM(p Provider, model string) *LLM {
	return &LLM{Provider: p, Model: model}
}

func (l *LLM) request(prompt string) *ChatRequest {
	model := l.Model
	if model == "" {
		model = l.Provider.DefaultModel()
	}
	return &ChatRequest{
		Model:        model,
		Messages:     []Message{TextMessage(RoleUser, prompt)},
		SystemPrompt: l.System,
		MaxTokens:    l.MaxTokens,
	}
}

// Generate sends prompt and returns the assembled reply.
func (l *LLM) Generate(ctx context.Context, prompt string) (string, error) {
	var sb strings.Builder
	for chunk, err := range l.Stream(ctx, prompt) {
		if err != nil {
			return "", err
		}
		sb.WriteString(chunk)
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Stream returns a finite, single-use sequence of text chunks. An error,
// if any, is yielded once as the final element. Breaking out of the loop
// early cancels the request and drains the remaining events so the
// provider goroutine can exit.
func (l *LLM) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	used := false
	return func(yield func(string, error) bool) {
		if used {
			yield("", errors.New("stream already consumed"))
			return
		}
		used = true

		ctx, cancel := context.WithCancel(ctx)
		events, err := l.Provider.Chat(ctx, l.request(prompt))
		if err != nil {
			cancel()
			yield("", fmt.Errorf("%s chat: %w", l.Provider.Name(), err))
			return
		}
		// Cancel before draining so a provider still generating stops.
		defer func() {
			cancel()
			for range events {
			}
		}()

		for event := range events {
			switch event.Type {
			case EventTextDelta:
				if !yield(event.TextDelta, nil) {
					return
				}
			case EventError:
				yield("", event.Error)
				return
			case EventDone:
				return
			}
		}
	}
}
