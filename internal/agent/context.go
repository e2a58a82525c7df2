package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// maxFileBytes caps how much of a single context file is loaded.
const maxFileBytes = 8 * 1024

// contextFiles are checked in order under the project root.
var contextFiles = []string{
	"LOCOPILOT.md",
	"AGENTS.md",
	filepath.Join(".locopilot", "context.md"),
}

// loadProjectContext builds the initial project context for root: its name,
// its path, the enclosing git repository and any instructions found in the
// context files.
func loadProjectContext(root string) map[string]any {
	ctx := map[string]any{
		"name": filepath.Base(root),
		"root": root,
	}
	if gitRoot := findGitRoot(root); gitRoot != "" {
		ctx["git_root"] = gitRoot
	}

	var parts []string
	for _, name := range contextFiles {
		if content := readContextFile(filepath.Join(root, name)); content != "" {
			parts = append(parts, fmt.Sprintf("From %s:\n%s", name, content))
		}
	}
	if len(parts) > 0 {
		ctx["instructions"] = strings.Join(parts, "\n\n")
	}
	return ctx
}

// formatProjectContext renders ctx as a <project_context> block, keys sorted.
// Instructions go last, unindented.
func formatProjectContext(ctx map[string]any) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		if k != "instructions" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var sb strings.Builder
	sb.WriteString("<project_context>\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %v\n", k, ctx[k])
	}
	if instr, ok := ctx["instructions"]; ok {
		fmt.Fprintf(&sb, "\n%v\n", instr)
	}
	sb.WriteString("</project_context>")
	return sb.String()
}

// findGitRoot walks up from dir looking for a .git entry.
// Returns "" if dir is not inside a repository.
func findGitRoot(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// readContextFile reads path, truncating at maxFileBytes.
// Returns "" if the file is missing or empty.
func readContextFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	content := strings.TrimSpace(string(data))
	if len(content) > maxFileBytes {
		content = content[:maxFileBytes] + fmt.Sprintf("\n[Truncated: %s exceeds %d bytes]", filepath.Base(path), maxFileBytes)
	}
	return content
}
