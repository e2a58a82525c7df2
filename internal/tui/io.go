// Package tui defines the IO interface between the agent loop and the
// user interface layer, plus PlainIO (interactive terminal), PipeIO
// (non-interactive) and BufferIO (capture).
package tui

// IO is the contract between the agent loop and the UI layer.
// Every method maps to a distinct visual event so the agent loop never
// depends on a specific rendering implementation.
type IO interface {
	// ReadInput blocks until the user submits a line of input.
	// Returns ("", io.EOF) when the user quits.
	ReadInput() (string, error)

	// UserMessage displays the user's submitted message in the output area.
	UserMessage(text string)

	// ThinkingStart signals that the LLM has started processing.
	ThinkingStart()

	// TextDelta appends an incremental text chunk from the LLM stream.
	TextDelta(delta string)

	// TextDone signals that the current LLM response is complete.
	// fullText contains the entire response assembled from all deltas.
	TextDone(fullText string)

	// SystemMessage displays a system-level notice (e.g. "/clear" feedback,
	// summarization notices, session status).
	SystemMessage(text string)

	// Error displays an error message with prominent styling.
	Error(msg string)

	// SetTokens updates the output token counter.
	SetTokens(n int)

	// SetContextInfo updates the context usage indicator.
	// used is the estimated conversation size in tokens, total the
	// memory's max token limit.
	SetContextInfo(used, total int)

	// SetMode updates the session mode indicator ("plan" or "do").
	SetMode(mode string)
}
