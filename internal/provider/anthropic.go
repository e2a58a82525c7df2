package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicProvider implements Provider on top of the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates an Anthropic provider. An empty model falls
// back to Claude Sonnet 4.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *AnthropicProvider) Name() string         { return "anthropic" }
func (p *AnthropicProvider) Models() []string     { return []string{p.model} }
func (p *AnthropicProvider) DefaultModel() string { return p.model }
func (p *AnthropicProvider) ContextWindow() int   { return 200000 }

func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (<-chan Event, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  buildAnthropicMessages(req.Messages),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		defer stream.Close()

		usage := &Usage{}
		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				usage.InputTokens = int(ev.Message.Usage.InputTokens)
			case anthropic.ContentBlockDeltaEvent:
				if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
					ch <- Event{Type: EventTextDelta, TextDelta: d.Text}
				}
			case anthropic.MessageDeltaEvent:
				usage.OutputTokens = int(ev.Usage.OutputTokens)
			}
		}
		if err := stream.Err(); err != nil {
			ch <- Event{Type: EventError, Error: fmt.Errorf("anthropic streaming error: %w", err)}
			return
		}
		ch <- Event{Type: EventDone, Usage: usage}
	}()
	return ch, nil
}

// buildAnthropicMessages converts unified messages to Anthropic params.
// Empty text blocks are rejected by the API, so they are skipped.
func buildAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		text := m.Text()
		if text == "" {
			continue
		}
		switch m.Role {
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		}
	}
	// The Messages API requires a user turn first; a summarized history starts
	// with the assistant's summary.
	if len(out) > 0 && out[0].Role == anthropic.MessageParamRoleAssistant {
		out = append([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(summaryLeadIn)),
		}, out...)
	}
	return out
}

const summaryLeadIn = "Continue from the summary of our earlier conversation."
