package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilLanguageModel is returned by NewMemory when no model is supplied.
	ErrNilLanguageModel = errors.New("session: language model is required")

	// ErrThresholdExceedsLimit is returned by NewMemory when the
	// summarization threshold is larger than the max token limit.
	ErrThresholdExceedsLimit = errors.New("session: summarization threshold exceeds max token limit")
)

// InvalidActionError reports a file-edit action outside create/edit/delete.
type InvalidActionError struct {
	Action string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid file edit action %q (want create, edit or delete)", e.Action)
}

// UnknownFieldError lists keys passed to State.Update that name no field.
type UnknownFieldError struct {
	Fields []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown session field(s): %s", strings.Join(e.Fields, ", "))
}

// InvalidModeError reports a mode value outside plan/do.
type InvalidModeError struct {
	Value string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q (want plan or do)", e.Value)
}
