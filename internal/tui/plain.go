package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// PlainIO implements IO on a line-oriented terminal.
//
// With Markdown enabled, streamed text is held back and printed once,
// rendered through glamour, when the reply completes. Without it, deltas
// are written as they arrive.
type PlainIO struct {
	scanner *bufio.Scanner
	out     io.Writer
	errOut  io.Writer

	markdown bool
	width    int
	md       markdownRenderer

	mu      sync.Mutex // protects output; the file watcher reports from its own goroutine
	mode    string
	tokens  int
	ctxUsed int
	ctxMax  int
}

// PlainOption configures a PlainIO.
type PlainOption func(*PlainIO)

// WithMarkdown enables glamour rendering of completed replies at the given width.
func WithMarkdown(width int) PlainOption {
	return func(p *PlainIO) {
		p.markdown = true
		p.width = width
	}
}

// NewPlainIO creates a PlainIO reading from in and writing to out/errOut.
func NewPlainIO(in io.Reader, out, errOut io.Writer, opts ...PlainOption) *PlainIO {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	p := &PlainIO{scanner: s, out: out, errOut: errOut, mode: "do"}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewTerminalIO creates a PlainIO on stdin/stdout, enabling markdown
// rendering when stdout is a terminal.
func NewTerminalIO() *PlainIO {
	var opts []PlainOption
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		width, _, err := term.GetSize(fd)
		if err != nil {
			width = 80
		}
		opts = append(opts, WithMarkdown(width))
	}
	return NewPlainIO(os.Stdin, os.Stdout, os.Stderr, opts...)
}

func (p *PlainIO) ReadInput() (string, error) {
	p.mu.Lock()
	fmt.Fprint(p.out, "\n"+p.prompt())
	p.mu.Unlock()
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

func (p *PlainIO) prompt() string {
	if !p.markdown {
		return fmt.Sprintf("[%s]> ", p.mode)
	}
	if p.mode == "plan" {
		return planPromptStyle.Render("[plan]> ")
	}
	return promptStyle.Render(fmt.Sprintf("[%s]> ", p.mode))
}

func (p *PlainIO) UserMessage(_ string) {
	// Plain terminal: the user already sees what they typed.
}

func (p *PlainIO) ThinkingStart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out) // blank line before AI output begins
}

func (p *PlainIO) TextDelta(delta string) {
	if p.markdown {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, delta)
}

func (p *PlainIO) TextDone(fullText string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.markdown {
		fmt.Fprintln(p.out, p.md.render(fullText, p.width))
		return
	}
	fmt.Fprintln(p.out)
}

func (p *PlainIO) SystemMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.markdown {
		text = systemStyle.Render(text)
	}
	fmt.Fprintln(p.out, text)
}

func (p *PlainIO) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := "error: " + msg
	if p.markdown {
		line = errorStyle.Render(line)
	}
	fmt.Fprintln(p.errOut, line)
}

func (p *PlainIO) SetTokens(n int) {
	p.mu.Lock()
	p.tokens = n
	p.mu.Unlock()
}

func (p *PlainIO) SetContextInfo(used, total int) {
	p.mu.Lock()
	p.ctxUsed, p.ctxMax = used, total
	p.mu.Unlock()
}

func (p *PlainIO) SetMode(mode string) {
	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()
}

// Status returns a one-line summary of the counters the agent last reported.
func (p *PlainIO) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("mode=%s context=%d/%d output_tokens=%d", p.mode, p.ctxUsed, p.ctxMax, p.tokens)
}

// truncate shortens s to maxLen characters, appending "..." if cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
