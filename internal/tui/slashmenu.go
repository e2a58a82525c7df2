package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SlashMenuItem is a single entry in the slash command help menu.
type SlashMenuItem struct {
	Name string // e.g. "/mode"
	Args string // e.g. "[plan|do]"
	Desc string // e.g. "Show or switch session mode"
}

// BuiltinSlashCommands returns the list of built-in slash commands.
func BuiltinSlashCommands() []SlashMenuItem {
	return []SlashMenuItem{
		{Name: "/help", Desc: "Show this help"},
		{Name: "/status", Desc: "Show session state and memory usage"},
		{Name: "/mode", Args: "[plan|do]", Desc: "Show or switch session mode"},
		{Name: "/model", Args: "<name>", Desc: "Switch model"},
		{Name: "/history", Desc: "Show the full conversation"},
		{Name: "/summary", Desc: "Show the context summary"},
		{Name: "/summarize", Desc: "Summarize the conversation now"},
		{Name: "/edits", Desc: "List recorded file edits"},
		{Name: "/edit", Args: "<create|edit|delete> <path>", Desc: "Record a file edit"},
		{Name: "/context", Args: "key=value ...", Desc: "Set project context"},
		{Name: "/clear", Desc: "Clear conversation, edits and context"},
		{Name: "/quit", Desc: "Exit (also /exit, /q)"},
	}
}

// FilterSlashItems returns items whose Name starts with the given prefix (case-insensitive).
func FilterSlashItems(items []SlashMenuItem, prefix string) []SlashMenuItem {
	if prefix == "" || prefix == "/" {
		return items
	}
	lower := strings.ToLower(prefix)
	var out []SlashMenuItem
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.Name), lower) {
			out = append(out, it)
		}
	}
	return out
}

var (
	slashMenuBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	slashMenuItemNormal = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	slashMenuDesc = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// RenderSlashMenu renders items as an aligned command list. With styled
// set, the list is colored and boxed to width.
func RenderSlashMenu(items []SlashMenuItem, styled bool, width int) string {
	if len(items) == 0 {
		return ""
	}

	maxName := 0
	for _, it := range items {
		if n := len(usage(it)); n > maxName {
			maxName = n
		}
	}

	lines := make([]string, 0, len(items))
	for _, it := range items {
		u := usage(it)
		padded := u + strings.Repeat(" ", maxName-len(u))
		if styled {
			lines = append(lines, slashMenuItemNormal.Render(padded)+"   "+slashMenuDesc.Render(it.Desc))
		} else {
			lines = append(lines, padded+"   "+it.Desc)
		}
	}

	inner := strings.Join(lines, "\n")
	if !styled {
		return inner
	}
	maxWidth := width - 6
	if maxWidth < 30 {
		maxWidth = 30
	}
	return slashMenuBorder.MaxWidth(maxWidth).Render(inner)
}

func usage(it SlashMenuItem) string {
	if it.Args == "" {
		return it.Name
	}
	return it.Name + " " + it.Args
}

// HelpText renders the built-in command list for the given IO, styled
// when the IO renders to a terminal.
func HelpText(out IO) string {
	if p, ok := out.(*PlainIO); ok && p.markdown {
		return RenderSlashMenu(BuiltinSlashCommands(), true, p.width)
	}
	return "Commands:\n" + RenderSlashMenu(BuiltinSlashCommands(), false, 0)
}
