// Package agent runs the interactive loop between the user, the session
// memory and the language model.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/locopilot/locopilot/internal/config"
	"github.com/locopilot/locopilot/internal/provider"
	"github.com/locopilot/locopilot/internal/session"
	"github.com/locopilot/locopilot/internal/tui"
)

// Agent orchestrates the REPL between user, Memory and Provider.
//
// Memory itself does no locking; every access goes through mu so the file
// watcher can record edits while a reply is streaming.
type Agent struct {
	mu       sync.Mutex
	provider provider.Provider
	mem      *session.Memory
	config   *config.Config
	io       tui.IO
	logger   *slog.Logger

	outputTokens int
	sleep        func(context.Context, time.Duration) error
}

// New creates an Agent. The session state is seeded from cfg: mode, model,
// backend and project path (defaulting to the working directory), and the
// project context is loaded from the project root.
func New(p provider.Provider, mem *session.Memory, cfg *config.Config, ui tui.IO, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		provider: p,
		mem:      mem,
		config:   cfg,
		io:       ui,
		logger:   logger.With("session", mem.State().ID),
		sleep:    sleepWithContext,
	}

	root := cfg.ProjectPath
	if root == "" {
		root, _ = os.Getwd()
	}
	fields := map[string]string{
		session.FieldModel:       a.model(),
		session.FieldBackend:     p.Name(),
		session.FieldProjectPath: root,
	}
	if cfg.Mode != "" {
		fields[session.FieldMode] = cfg.Mode
	}
	if err := mem.State().Update(fields); err != nil {
		a.logger.Warn("session state not fully initialized", "error", err)
	}
	mem.SetProjectContext(loadProjectContext(root))

	ui.SetMode(string(mem.State().Mode))
	ui.SetContextInfo(0, mem.MaxTokenLimit())
	return a
}

// model returns the model in use: config override or provider default.
func (a *Agent) model() string {
	if a.config.Model != "" {
		return a.config.Model
	}
	return a.provider.DefaultModel()
}

// Memory returns the session memory. Callers outside the agent goroutine
// must go through RecordFileEdit instead of mutating it directly.
func (a *Agent) Memory() *session.Memory { return a.mem }

// RecordFileEdit records a file edit in memory. Safe for concurrent use.
func (a *Agent) RecordFileEdit(path, action, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mem.AddFileEdit(path, action, content)
}

// FileEdits returns the recorded edits. Safe for concurrent use.
func (a *Agent) FileEdits() []session.FileEdit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mem.FileEdits()
}

// Run starts the interactive REPL loop. It returns nil on EOF or /quit.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("session started", "provider", a.provider.Name(), "model", a.model())
	defer a.logger.Info("session ended")

	for {
		input, err := a.io.ReadInput()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := a.handleSlashCommand(ctx, input); quit {
				return nil
			}
			continue
		}

		a.io.UserMessage(input)
		if err := a.turn(ctx, input); err != nil {
			if ctx.Err() != nil {
				a.io.SystemMessage("Interrupted.")
				return ctx.Err()
			}
			a.io.Error(err.Error())
		}
	}
}

// RunOnce sends a single prompt and returns after the reply (and any
// summarization it triggers) completes.
func (a *Agent) RunOnce(ctx context.Context, prompt string) error {
	a.io.UserMessage(prompt)
	return a.turn(ctx, prompt)
}

// turn records the user message, streams the reply, records it and
// summarizes the conversation once it grows past the threshold.
func (a *Agent) turn(ctx context.Context, input string) error {
	a.mu.Lock()
	a.mem.AddUserMessage(input)
	req := &provider.ChatRequest{
		Model:        a.model(),
		Messages:     session.Messages(a.mem.Turns()),
		SystemPrompt: a.buildSystemPrompt(),
		MaxTokens:    a.config.MaxResponseTokens,
	}
	a.mu.Unlock()

	a.logger.Debug("chat request", "messages", len(req.Messages), "system_chars", len(req.SystemPrompt))
	reply, err := a.streamReply(ctx, req)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if reply != "" {
		a.mem.AddAIMessage(reply)
	}
	if a.mem.ShouldSummarize() {
		a.summarizeLocked(ctx)
	}
	a.io.SetContextInfo(a.mem.EstimatedTokens(), a.mem.MaxTokenLimit())
	return nil
}

// summarizeLocked runs ForceSummarize and reports the outcome. a.mu must be held.
func (a *Agent) summarizeLocked(ctx context.Context) bool {
	before := a.mem.EstimatedTokens()
	if len(a.mem.Turns()) == 0 {
		a.io.SystemMessage("Nothing to summarize.")
		return false
	}
	a.io.SystemMessage(fmt.Sprintf("Summarizing conversation (~%d tokens)...", before))
	if err := a.mem.ForceSummarize(ctx); err != nil {
		a.io.Error("summarization failed, earlier turns were dropped: " + err.Error())
		return false
	}
	a.io.SystemMessage(fmt.Sprintf("Conversation summarized: ~%d -> ~%d tokens.", before, a.mem.EstimatedTokens()))
	return true
}

// streamReply sends req, streaming deltas to the UI. Transient failures
// before any content arrives are retried with backoff.
func (a *Agent) streamReply(ctx context.Context, req *provider.ChatRequest) (string, error) {
	var text strings.Builder

	for attempt := range maxRetries + 1 {
		text.Reset()

		events, err := a.provider.Chat(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt < maxRetries && isRetryableError(err) {
				if err := a.backoff(ctx, attempt, err); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("LLM call failed: %w", err)
		}

		a.io.ThinkingStart()

		var streamErr error
		received := false
		for ev := range events {
			switch ev.Type {
			case provider.EventTextDelta:
				received = true
				a.io.TextDelta(ev.TextDelta)
				text.WriteString(ev.TextDelta)
			case provider.EventDone:
				if ev.Usage != nil {
					a.outputTokens += ev.Usage.OutputTokens
					a.io.SetTokens(a.outputTokens)
				}
			case provider.EventError:
				streamErr = ev.Error
			}
		}

		if ctx.Err() != nil {
			a.io.TextDone(text.String())
			return text.String(), ctx.Err()
		}

		if streamErr != nil && !received && attempt < maxRetries && isRetryableError(streamErr) {
			if err := a.backoff(ctx, attempt, streamErr); err != nil {
				return "", err
			}
			continue
		}

		// Stream error after content was received: can't retry safely.
		if streamErr != nil {
			a.io.TextDone(text.String())
			return "", fmt.Errorf("stream error: %w", streamErr)
		}
		break
	}

	full := text.String()
	a.io.TextDone(full)
	return full, nil
}

func (a *Agent) backoff(ctx context.Context, attempt int, cause error) error {
	delay := retryDelay(attempt)
	a.io.SystemMessage(formatRetryMessage(attempt, maxRetries, delay, cause))
	a.logger.Warn("retrying chat request", "attempt", attempt+1, "delay", delay, "error", cause)
	return a.sleep(ctx, delay)
}
