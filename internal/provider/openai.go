package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// OpenAIProvider implements Provider for all OpenAI-compatible APIs,
// including a local Ollama server, OpenAI, DeepSeek, Groq, etc.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	name    string
	baseURL string
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
// Local servers such as Ollama ignore the API key, so an empty key is
// replaced with a placeholder the SDK accepts.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	name := detectProviderName(baseURL)
	if apiKey == "" && name == "ollama" {
		apiKey = "ollama"
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	if model == "" {
		model = "gpt-4o-mini" // fallback; normally buildProvider passes the correct default
	}

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		model:   model,
		name:    name,
		baseURL: baseURL,
	}
}

func detectProviderName(baseURL string) string {
	switch {
	case baseURL == "":
		return "openai"
	case strings.Contains(baseURL, ":11434"), strings.Contains(baseURL, "ollama"):
		return "ollama"
	case strings.Contains(baseURL, "deepseek"):
		return "deepseek"
	case strings.Contains(baseURL, "generativelanguage.googleapis.com"):
		return "gemini"
	case strings.Contains(baseURL, "dashscope"):
		return "qwen"
	case strings.Contains(baseURL, "groq"):
		return "groq"
	}
	return "openai"
}

func (p *OpenAIProvider) Name() string         { return p.name }
func (p *OpenAIProvider) Models() []string     { return []string{p.model} }
func (p *OpenAIProvider) DefaultModel() string { return p.model }

func (p *OpenAIProvider) ContextWindow() int {
	switch {
	case strings.Contains(p.model, "gpt-4o"):
		return 128000
	case strings.Contains(p.model, "gpt-4"):
		return 128000
	case strings.Contains(p.model, "o1"), strings.Contains(p.model, "o3"):
		return 200000
	case strings.Contains(p.model, "deepseek"):
		return 64000
	case strings.HasPrefix(p.model, "qwen3"), strings.HasPrefix(p.model, "llama3"):
		// Ollama's default num_ctx for small local models.
		return 32768
	default:
		return 128000
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (<-chan Event, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: p.buildMessages(req),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	ch := make(chan Event, 16)
	go p.processStream(ctx, stream, ch)
	return ch, nil
}

// processStream reads the OpenAI SSE stream and emits unified events.
func (p *OpenAIProvider) processStream(ctx context.Context, stream *ssestream.Stream[openai.ChatCompletionChunk], ch chan<- Event) {
	defer close(ch)
	defer stream.Close()

	for stream.Next() {
		select {
		case <-ctx.Done():
			ch <- Event{Type: EventError, Error: ctx.Err()}
			return
		default:
		}

		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			// Final chunk may only carry usage.
			if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
				ch <- Event{
					Type: EventDone,
					Usage: &Usage{
						InputTokens:  int(chunk.Usage.PromptTokens),
						OutputTokens: int(chunk.Usage.CompletionTokens),
					},
				}
				return
			}
			continue
		}

		choice := chunk.Choices[0]
		delta := choice.Delta

		// Reasoning models served through Ollama or DeepSeek put their
		// thinking in reasoning_content; it must not leak into visible output.
		if delta.Content == "" {
			if rc := extractReasoningContent(delta.RawJSON()); rc != "" {
				continue
			}
		}

		if delta.Content != "" {
			ch <- Event{Type: EventTextDelta, TextDelta: delta.Content}
		}

		if string(choice.FinishReason) != "" {
			ch <- Event{
				Type: EventDone,
				Usage: &Usage{
					InputTokens:  int(chunk.Usage.PromptTokens),
					OutputTokens: int(chunk.Usage.CompletionTokens),
				},
			}
			return
		}
	}

	if err := stream.Err(); err != nil {
		ch <- Event{Type: EventError, Error: fmt.Errorf("openai streaming error: %w", err)}
		return
	}
	ch <- Event{Type: EventDone, Usage: &Usage{}}
}

// buildMessages converts unified Message types to OpenAI API params.
func (p *OpenAIProvider) buildMessages(req *ChatRequest) []openai.ChatCompletionMessageParamUnion {
	var params []openai.ChatCompletionMessageParamUnion

	if req.SystemPrompt != "" {
		params = append(params, openai.SystemMessage(req.SystemPrompt))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			params = append(params, openai.UserMessage(msg.Text()))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Text()))
		}
	}
	return params
}

// extractReasoningContent parses the raw JSON of a delta chunk to find a
// "reasoning_content" field (used by DeepSeek and other reasoning models).
// Returns the reasoning text if present, empty string otherwise.
func extractReasoningContent(rawJSON string) string {
	if rawJSON == "" {
		return ""
	}
	var raw struct {
		ReasoningContent string `json:"reasoning_content"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &raw); err != nil {
		return ""
	}
	return raw.ReasoningContent
}
