package session

import (
	"strings"
	"time"
)

// Action is the kind of change recorded for a file.
type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// PreviewLimit is the number of characters kept from an edit's content.
const PreviewLimit = 200

// ParseAction validates s as one of create, edit or delete.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionCreate, ActionEdit, ActionDelete:
		return a, nil
	}
	return "", &InvalidActionError{Action: s}
}

// FileEdit records a single file operation made during a session.
// Records are never mutated after creation.
type FileEdit struct {
	Path           string
	Action         Action
	Timestamp      time.Time
	ContentPreview string // first PreviewLimit characters; empty = no content
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
