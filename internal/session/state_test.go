package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// stepClock returns t0, t0+1s, t0+2s, ...
func stepClock(t0 time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		t := t0.Add(time.Duration(n) * time.Second)
		n++
		return t
	}
}

func TestNewState(t *testing.T) {
	s := NewState()
	if s.Mode != ModeDo {
		t.Errorf("default mode = %q, want do", s.Mode)
	}
	if !s.CreatedAt.Equal(s.UpdatedAt) {
		t.Error("CreatedAt and UpdatedAt should start equal")
	}
	if len(s.ID) != 8 {
		t.Errorf("expected 8-char ID, got %q", s.ID)
	}
}

func TestState_UpdateMode(t *testing.T) {
	s := newStateWithClock(stepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	s.Model = "qwen3:1.7b"
	before := s.UpdatedAt

	if err := s.Update(map[string]string{"mode": "plan"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if s.Mode != ModePlan {
		t.Errorf("mode = %q, want plan", s.Mode)
	}
	if s.UpdatedAt.Before(before) || s.UpdatedAt.Equal(before) {
		t.Errorf("UpdatedAt should advance: before=%v after=%v", before, s.UpdatedAt)
	}
	if s.Model != "qwen3:1.7b" {
		t.Error("fields not named in the update must be unchanged")
	}
}

func TestState_UpdateAllFields(t *testing.T) {
	s := NewState()
	err := s.Update(map[string]string{
		"mode":         "plan",
		"model":        "llama3.2",
		"backend":      "ollama",
		"project_path": "/src/app",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if s.Mode != ModePlan || s.Model != "llama3.2" || s.Backend != "ollama" || s.ProjectPath != "/src/app" {
		t.Errorf("unexpected state: %+v", s)
	}
}

func TestState_UpdateUnknownFields(t *testing.T) {
	s := newStateWithClock(stepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	before := s.UpdatedAt

	err := s.Update(map[string]string{"model": "m", "color": "red", "created_at": "x"})
	var ufe *UnknownFieldError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnknownFieldError, got %v", err)
	}
	if strings.Join(ufe.Fields, ",") != "color,created_at" {
		t.Errorf("unknown fields = %v", ufe.Fields)
	}
	if s.Model != "m" {
		t.Error("recognized fields should still be applied")
	}
	if !s.UpdatedAt.After(before) {
		t.Error("UpdatedAt should be refreshed")
	}
	if !s.CreatedAt.Equal(before) {
		t.Error("created_at must not be writable through Update")
	}
}

func TestState_UpdateEmptyStillTouches(t *testing.T) {
	s := newStateWithClock(stepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	before := s.UpdatedAt
	if err := s.Update(nil); err != nil {
		t.Fatalf("Update(nil): %v", err)
	}
	if !s.UpdatedAt.After(before) {
		t.Error("UpdatedAt should be refreshed even with no fields")
	}
}

func TestState_UpdateInvalidMode(t *testing.T) {
	s := NewState()
	err := s.Update(map[string]string{"mode": "yolo", "backend": "ollama"})
	var ime *InvalidModeError
	if !errors.As(err, &ime) {
		t.Fatalf("expected InvalidModeError, got %v", err)
	}
	if s.Mode != ModeDo {
		t.Errorf("mode should be unchanged, got %q", s.Mode)
	}
	if s.Backend != "ollama" {
		t.Error("other fields should still be applied")
	}
}

func TestState_UpdateInvalidModeAndUnknownFields(t *testing.T) {
	s := NewState()
	err := s.Update(map[string]string{"mode": "yolo", "color": "red", "model": "m"})

	var ime *InvalidModeError
	if !errors.As(err, &ime) || ime.Value != "yolo" {
		t.Errorf("expected InvalidModeError for yolo, got %v", err)
	}
	var ufe *UnknownFieldError
	if !errors.As(err, &ufe) || strings.Join(ufe.Fields, ",") != "color" {
		t.Errorf("expected UnknownFieldError for color, got %v", err)
	}
	if s.Mode != ModeDo || s.Model != "m" {
		t.Errorf("unexpected state: mode=%q model=%q", s.Mode, s.Model)
	}
}

func TestState_UpdatedAtNeverGoesBackwards(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return t0
		}
		return t0.Add(-time.Hour) // wall clock stepped back
	}
	s := newStateWithClock(clock)
	s.SetModel("m")
	if s.UpdatedAt.Before(s.CreatedAt) {
		t.Errorf("UpdatedAt %v precedes CreatedAt %v", s.UpdatedAt, s.CreatedAt)
	}
}

func TestState_Setters(t *testing.T) {
	s := newStateWithClock(stepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	last := s.UpdatedAt
	for _, set := range []func(){
		func() { s.SetMode(ModePlan) },
		func() { s.SetModel("m") },
		func() { s.SetBackend("b") },
		func() { s.SetProjectPath("/p") },
	} {
		set()
		if !s.UpdatedAt.After(last) {
			t.Fatal("setter did not refresh UpdatedAt")
		}
		last = s.UpdatedAt
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"plan", ModePlan, false},
		{"do", ModeDo, false},
		{" PLAN ", ModePlan, false},
		{"", "", true},
		{"execute", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, in := range []string{"create", "edit", "delete", "EDIT"} {
		if _, err := ParseAction(in); err != nil {
			t.Errorf("ParseAction(%q): %v", in, err)
		}
	}
	for _, in := range []string{"", "modify", "rename"} {
		if _, err := ParseAction(in); err == nil {
			t.Errorf("ParseAction(%q) should fail", in)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
