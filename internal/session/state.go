package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode is the operating mode of a session.
type Mode string

const (
	ModePlan Mode = "plan" // analyze and propose, do not change files
	ModeDo   Mode = "do"   // execute normally
)

// ParseMode converts s into a Mode. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePlan:
		return ModePlan, nil
	case ModeDo:
		return ModeDo, nil
	}
	return "", &InvalidModeError{Value: s}
}

// Updatable field names accepted by State.Update.
const (
	FieldMode        = "mode"
	FieldModel       = "model"
	FieldBackend     = "backend"
	FieldProjectPath = "project_path"
)

// State describes the current operating mode, selected model/backend and
// project of one session. UpdatedAt is refreshed on every mutation and is
// never earlier than CreatedAt.
type State struct {
	ID          string
	Mode        Mode
	Model       string
	Backend     string
	ProjectPath string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	now func() time.Time
}

// NewState creates a state in ModeDo with a fresh short ID.
func NewState() *State {
	return newStateWithClock(time.Now)
}

func newStateWithClock(now func() time.Time) *State {
	t := now()
	return &State{
		ID:        uuid.New().String()[:8],
		Mode:      ModeDo,
		CreatedAt: t,
		UpdatedAt: t,
		now:       now,
	}
}

// Update applies a partial set of field assignments. Recognized fields
// (mode, model, backend, project_path) are applied; unknown keys change
// nothing and are reported together as an *UnknownFieldError. An invalid
// mode value leaves Mode untouched and is reported as *InvalidModeError.
// When both occur the errors are joined.
// UpdatedAt is refreshed in every case, including an empty map.
func (s *State) Update(fields map[string]string) error {
	var unknown []string
	var modeErr error

	for key, value := range fields {
		switch key {
		case FieldMode:
			m, err := ParseMode(value)
			if err != nil {
				modeErr = err
				continue
			}
			s.Mode = m
		case FieldModel:
			s.Model = value
		case FieldBackend:
			s.Backend = value
		case FieldProjectPath:
			s.ProjectPath = value
		default:
			unknown = append(unknown, key)
		}
	}
	s.touch()

	var errs []error
	if modeErr != nil {
		errs = append(errs, modeErr)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		errs = append(errs, &UnknownFieldError{Fields: unknown})
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// SetMode sets the session mode.
func (s *State) SetMode(m Mode) {
	s.Mode = m
	s.touch()
}

// SetModel records the model in use.
func (s *State) SetModel(model string) {
	s.Model = model
	s.touch()
}

// SetBackend records the provider serving the model.
func (s *State) SetBackend(backend string) {
	s.Backend = backend
	s.touch()
}

// SetProjectPath sets the project root.
func (s *State) SetProjectPath(path string) {
	s.ProjectPath = path
	s.touch()
}

// touch refreshes UpdatedAt, clamping so it never precedes the previous
// value or CreatedAt even if the wall clock steps backwards.
func (s *State) touch() {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	t := now()
	if t.Before(s.UpdatedAt) {
		t = s.UpdatedAt
	}
	if t.Before(s.CreatedAt) {
		t = s.CreatedAt
	}
	s.UpdatedAt = t
}

// String renders the state for /status output.
func (s *State) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session:  %s\n", s.ID)
	fmt.Fprintf(&sb, "Mode:     %s\n", s.Mode)
	fmt.Fprintf(&sb, "Backend:  %s\n", s.Backend)
	fmt.Fprintf(&sb, "Model:    %s\n", s.Model)
	fmt.Fprintf(&sb, "Project:  %s\n", s.ProjectPath)
	fmt.Fprintf(&sb, "Started:  %s\n", s.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Updated:  %s", s.UpdatedAt.Format(time.RFC3339))
	return sb.String()
}
