package agent

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/locopilot/locopilot/internal/session"
)

//go:embed prompts/*.md
var defaultPromptFS embed.FS

// loadSystemPrompt assembles the base prompt for mode from embedded defaults
// and user overrides. Override paths (in priority order, higher wins):
//
//	~/.config/locopilot/prompts/{section}.md   global user override
//	{gitRoot}/.locopilot/prompts/{section}.md  repository override
//	{root}/.locopilot/prompts/{section}.md     project override
//
// A special "_extra.md" file in any override directory is appended after all sections.
func loadSystemPrompt(root string, mode session.Mode) string {
	overrideDirs := promptOverrideDirs(root, findGitRoot(root))

	var sections []string
	for _, name := range []string{"identity", string(mode)} {
		if content := loadPromptSection(name, overrideDirs); content != "" {
			sections = append(sections, content)
		}
	}
	result := strings.Join(sections, "\n\n")

	for _, dir := range overrideDirs {
		if extra := readFileString(filepath.Join(dir, "_extra.md")); extra != "" {
			result += "\n\n" + extra
		}
	}
	return result
}

// loadPromptSection loads a single prompt section by name.
// Checks override directories in order (last wins), falls back to embedded default.
func loadPromptSection(name string, overrideDirs []string) string {
	filename := name + ".md"

	for i := len(overrideDirs) - 1; i >= 0; i-- {
		if content := readFileString(filepath.Join(overrideDirs[i], filename)); content != "" {
			return content
		}
	}

	data, err := defaultPromptFS.ReadFile("prompts/" + filename)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// promptOverrideDirs returns the directories to check for prompt overrides,
// in priority order (lowest first).
func promptOverrideDirs(root, gitRoot string) []string {
	seen := make(map[string]bool)
	var dirs []string

	add := func(dir string) {
		abs, err := filepath.Abs(dir)
		if err != nil || seen[abs] {
			return
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			return
		}
		seen[abs] = true
		dirs = append(dirs, abs)
	}

	if home, err := os.UserHomeDir(); err == nil {
		add(filepath.Join(home, ".config", "locopilot", "prompts"))
	}
	if gitRoot != "" && gitRoot != root {
		add(filepath.Join(gitRoot, ".locopilot", "prompts"))
	}
	add(filepath.Join(root, ".locopilot", "prompts"))

	return dirs
}

// buildSystemPrompt combines the base prompt with the model identity, the
// project context and the memory's context summary.
func (a *Agent) buildSystemPrompt() string {
	state := a.mem.State()

	var sb strings.Builder
	if a.config.SystemPrompt != "" {
		sb.WriteString(a.config.SystemPrompt)
	} else {
		sb.WriteString(loadSystemPrompt(state.ProjectPath, state.Mode))
	}

	fmt.Fprintf(&sb, "\n\nYou are powered by %s (provider: %s). "+
		"When asked about your identity, state these facts. Never claim to be a different model.",
		a.model(), a.provider.Name())

	if pc := formatProjectContext(a.mem.ProjectContext()); pc != "" {
		sb.WriteString("\n\n")
		sb.WriteString(pc)
	}

	if len(a.mem.Turns()) > 0 {
		sb.WriteString("\n\n<session_summary>\n")
		sb.WriteString(strings.TrimRight(a.mem.ContextSummary(), "\n"))
		sb.WriteString("\n</session_summary>")
	}
	return sb.String()
}

// readFileString reads a file and returns its trimmed content.
// Returns empty string if the file doesn't exist or is empty.
func readFileString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
