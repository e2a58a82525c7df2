package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	planPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	welcomeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 1)

	welcomeTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("63")).
				Bold(true)

	welcomeLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	welcomeValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	welcomeHintStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Italic(true)
)

// markdownRenderer caches a glamour renderer per wrap width.
type markdownRenderer struct {
	r     *glamour.TermRenderer
	width int
}

func (m *markdownRenderer) get(width int) *glamour.TermRenderer {
	if width <= 0 {
		width = 80
	}
	wrapWidth := width - 4
	if m.r != nil && m.width == wrapWidth {
		return m.r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return nil
	}
	m.r = r
	m.width = wrapWidth
	return r
}

// render returns text as styled markdown, or text unchanged if rendering fails.
func (m *markdownRenderer) render(text string, width int) string {
	r := m.get(width)
	if r == nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

// WelcomeInfo is shown in the session banner.
type WelcomeInfo struct {
	Version   string
	Provider  string
	Model     string
	SessionID string
	Mode      string
	Project   string
}

// RenderWelcome renders the boxed session banner.
func RenderWelcome(info WelcomeInfo) string {
	version := info.Version
	if version == "" {
		version = "dev"
	}
	rows := []struct{ label, value string }{
		{"Provider: ", info.Provider},
		{"Model:    ", info.Model},
		{"Mode:     ", info.Mode},
		{"Project:  ", info.Project},
		{"Session:  ", info.SessionID},
	}
	var lines []string
	for _, r := range rows {
		if r.value == "" {
			continue
		}
		lines = append(lines, welcomeLabelStyle.Render(r.label)+welcomeValueStyle.Render(r.value))
	}
	lines = append(lines, "", welcomeHintStyle.Render("/help for commands  /quit to exit"))

	title := welcomeTitleStyle.Render(fmt.Sprintf("locopilot %s", version))
	return title + "\n" + welcomeBorderStyle.Render(strings.Join(lines, "\n"))
}
