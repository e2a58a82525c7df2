package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// PipeIO implements IO for non-interactive pipe/CI mode.
// LLM text goes to out, diagnostics go to errW.
type PipeIO struct {
	format    string    // "text" or "jsonl"
	printLast bool      // only output the final LLM text
	writer    io.Writer // stdout
	errW      io.Writer // stderr
	lastText  string    // last complete LLM text (for printLast mode)
	tokens    int
	now       func() time.Time
}

// NewPipeIO creates a PipeIO instance.
func NewPipeIO(out, errW io.Writer, format string, printLast bool) *PipeIO {
	if format == "" {
		format = "text"
	}
	return &PipeIO{
		format:    format,
		printLast: printLast,
		writer:    out,
		errW:      errW,
		now:       time.Now,
	}
}

func (p *PipeIO) ReadInput() (string, error) { return "", io.EOF }
func (p *PipeIO) UserMessage(_ string)        {}
func (p *PipeIO) ThinkingStart()              {}

func (p *PipeIO) TextDelta(delta string) {
	if p.printLast {
		return // suppress streaming in printLast mode
	}
	if p.format == "jsonl" {
		return // jsonl emits full text on TextDone
	}
	fmt.Fprint(p.writer, delta)
}

func (p *PipeIO) TextDone(fullText string) {
	p.lastText = fullText
	if p.printLast {
		return // will be flushed at Flush()
	}
	if p.format == "jsonl" {
		p.emitJSONL("text", map[string]string{"content": fullText})
	} else {
		fmt.Fprintln(p.writer) // newline after streaming deltas
	}
}

func (p *PipeIO) SystemMessage(text string) {
	if p.format == "jsonl" {
		p.emitJSONL("system", map[string]string{"content": truncate(text, 4096)})
		return
	}
	fmt.Fprintln(p.errW, text)
}

func (p *PipeIO) Error(msg string) {
	if p.format == "jsonl" {
		p.emitJSONL("error", map[string]string{"message": msg})
		return
	}
	fmt.Fprintf(p.errW, "error: %s\n", msg)
}

func (p *PipeIO) SetTokens(n int)          { p.tokens = n }
func (p *PipeIO) SetContextInfo(_, _ int) {}
func (p *PipeIO) SetMode(_ string)         {}

// Flush outputs the last LLM text when in printLast mode and, for jsonl,
// a closing usage event. Should be called after the agent finishes.
func (p *PipeIO) Flush() {
	if p.printLast && p.lastText != "" {
		fmt.Fprintln(p.writer, p.lastText)
	}
	if p.format == "jsonl" && !p.printLast {
		p.emitJSONL("done", map[string]int{"output_tokens": p.tokens})
	}
}

// emitJSONL writes a JSON line to stdout.
func (p *PipeIO) emitJSONL(eventType string, data any) {
	line, _ := json.Marshal(map[string]any{
		"type":      eventType,
		"timestamp": p.now().UTC().Format(time.RFC3339),
		"data":      data,
	})
	fmt.Fprintln(p.writer, string(line))
}
