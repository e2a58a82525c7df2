package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/locopilot/locopilot/internal/session"
	"github.com/locopilot/locopilot/internal/tui"
)

// maxEditRead caps how much of a file /edit reads for the content preview.
const maxEditRead = 64 * 1024

// handleSlashCommand processes built-in commands. Returns true to quit.
func (a *Agent) handleSlashCommand(ctx context.Context, input string) bool {
	parts := strings.SplitN(strings.TrimSpace(input), " ", 2)
	cmd := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/quit", "/exit", "/q":
		a.io.SystemMessage("Bye.")
		return true
	case "/help":
		a.io.SystemMessage(tui.HelpText(a.io))
	case "/clear":
		a.mu.Lock()
		a.mem.Clear()
		a.io.SetContextInfo(0, a.mem.MaxTokenLimit())
		a.mu.Unlock()
		a.io.SystemMessage("Conversation, file edits and project context cleared.")
	case "/history":
		a.mu.Lock()
		history := a.mem.FormattedHistory()
		a.mu.Unlock()
		if history == "" {
			history = "No conversation history."
		}
		a.io.SystemMessage(history)
	case "/summary":
		a.mu.Lock()
		summary := a.mem.ContextSummary()
		a.mu.Unlock()
		a.io.SystemMessage(strings.TrimRight(summary, "\n"))
	case "/summarize":
		a.mu.Lock()
		a.summarizeLocked(ctx)
		a.io.SetContextInfo(a.mem.EstimatedTokens(), a.mem.MaxTokenLimit())
		a.mu.Unlock()
	case "/edits":
		a.handleEdits()
	case "/edit":
		a.handleEdit(arg)
	case "/mode":
		a.handleMode(arg)
	case "/model":
		a.handleModel(arg)
	case "/status":
		a.handleStatus()
	case "/context":
		a.handleContext(arg)
	default:
		msg := "Unknown command: " + cmd
		if matches := tui.FilterSlashItems(tui.BuiltinSlashCommands(), cmd); len(matches) > 0 {
			names := make([]string, len(matches))
			for i, m := range matches {
				names[i] = m.Name
			}
			msg += " (did you mean " + strings.Join(names, ", ") + "?)"
		} else {
			msg += " (type /help)"
		}
		a.io.Error(msg)
	}
	return false
}

func (a *Agent) handleEdits() {
	a.mu.Lock()
	edits := a.mem.FileEdits()
	a.mu.Unlock()

	if len(edits) == 0 {
		a.io.SystemMessage("No file edits recorded.")
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "File edits (%d):", len(edits))
	for _, e := range edits {
		fmt.Fprintf(&sb, "\n  %s  %-6s %s", e.Timestamp.Format("15:04:05"), e.Action, e.Path)
	}
	a.io.SystemMessage(sb.String())
}

// handleEdit records "/edit <action> <path>". For create and edit the
// current file content (if readable) becomes the preview.
func (a *Agent) handleEdit(arg string) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		a.io.Error("usage: /edit <create|edit|delete> <path>")
		return
	}
	action, path := fields[0], fields[1]

	var content string
	if act, err := session.ParseAction(action); err == nil && act != session.ActionDelete {
		content = a.readPreview(path)
	}

	if err := a.RecordFileEdit(path, action, content); err != nil {
		a.io.Error(err.Error())
		return
	}
	a.io.SystemMessage(fmt.Sprintf("Recorded %s %s.", strings.ToLower(action), path))
}

// readPreview reads up to maxEditRead bytes of path, resolved against the
// project root. Unreadable files yield "".
func (a *Agent) readPreview(path string) string {
	if !filepath.IsAbs(path) {
		a.mu.Lock()
		root := a.mem.State().ProjectPath
		a.mu.Unlock()
		path = filepath.Join(root, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxEditRead))
	if err != nil {
		return ""
	}
	return string(data)
}

func (a *Agent) handleMode(arg string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.mem.State()
	if arg == "" {
		a.io.SystemMessage(fmt.Sprintf("Mode: %s (use /mode plan or /mode do)", state.Mode))
		return
	}
	if err := state.Update(map[string]string{session.FieldMode: arg}); err != nil {
		var ime *session.InvalidModeError
		if errors.As(err, &ime) {
			a.io.Error(fmt.Sprintf("unknown mode %q: use plan or do", ime.Value))
			return
		}
		a.io.Error(err.Error())
		return
	}
	a.io.SetMode(string(state.Mode))
	a.io.SystemMessage("Mode: " + string(state.Mode))
}

func (a *Agent) handleModel(arg string) {
	if arg == "" {
		a.io.SystemMessage(fmt.Sprintf("Model: %s (provider: %s)", a.model(), a.provider.Name()))
		if models := a.provider.Models(); len(models) > 0 {
			a.io.SystemMessage("Known models: " + strings.Join(models, ", "))
		}
		return
	}
	a.mu.Lock()
	a.config.Model = arg
	a.mem.State().SetModel(arg)
	a.mu.Unlock()
	a.io.SystemMessage("Model switched to " + arg)
}

func (a *Agent) handleStatus() {
	a.mu.Lock()
	var sb strings.Builder
	sb.WriteString(a.mem.State().String())
	fmt.Fprintf(&sb, "\nTurns:    %d", len(a.mem.Turns()))
	fmt.Fprintf(&sb, "\nContext:  ~%d / %d tokens (summarize above %d)",
		a.mem.EstimatedTokens(), a.mem.MaxTokenLimit(), a.mem.SummarizationThreshold())
	fmt.Fprintf(&sb, "\nEdits:    %d", len(a.mem.FileEdits()))
	fmt.Fprintf(&sb, "\nOutput:   %d tokens", a.outputTokens)
	a.mu.Unlock()
	a.io.SystemMessage(sb.String())
}

// handleContext shows the project context, or merges key=value pairs into it.
func (a *Agent) handleContext(arg string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pc := a.mem.ProjectContext()
	if arg == "" {
		if text := formatProjectContext(pc); text != "" {
			a.io.SystemMessage(text)
		} else {
			a.io.SystemMessage("No project context.")
		}
		return
	}

	for _, kv := range strings.Fields(arg) {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			a.io.Error(fmt.Sprintf("invalid pair %q: use key=value", kv))
			return
		}
		if value == "" {
			delete(pc, key)
			continue
		}
		pc[key] = value
	}
	a.mem.SetProjectContext(pc)
	a.io.SystemMessage(fmt.Sprintf("Project context updated (%d keys).", len(pc)))
}
