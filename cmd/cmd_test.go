package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/locopilot/locopilot/internal/config"
	"github.com/locopilot/locopilot/internal/scaffold"
)

type fakeStreamer struct {
	chunks  map[string][]string
	err     error
	prompts []string
}

func (f *fakeStreamer) Stream(_ context.Context, prompt string) iter.Seq2[string, error] {
	f.prompts = append(f.prompts, prompt)
	return func(yield func(string, error) bool) {
		for _, c := range f.chunks[prompt] {
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

func numberedChunks(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d ", i)
	}
	return out
}

func TestRunStreamTest(t *testing.T) {
	opts := defaultStreamTestOptions()
	opts.Label = "ollama (qwen3:1.7b)"
	opts.Delay = 0

	lm := &fakeStreamer{chunks: map[string][]string{
		opts.StoryPrompt: numberedChunks(30),
		opts.HelloPrompt: {"Hello", ", ", "world"},
	}}
	var out bytes.Buffer
	if err := runStreamTest(context.Background(), lm, &out, opts); err != nil {
		t.Fatalf("runStreamTest: %v", err)
	}
	got := out.String()

	for _, want := range []string{
		"Testing ollama (qwen3:1.7b) streaming...\n",
		"Starting stream...\n" + strings.Repeat("=", 50) + "\n",
		`[0] "w0 "` + "\n",
		`[20] "w20 "` + "\n... (truncated)\n",
		"Testing immediate output...\nHello, world\nDone!\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "[21]") {
		t.Errorf("chunks after [20] should not be printed:\n%s", got)
	}
	if len(lm.prompts) != 2 {
		t.Errorf("expected 2 stream calls, got %v", lm.prompts)
	}
}

func TestRunStreamTest_ShortReplyNotTruncated(t *testing.T) {
	opts := defaultStreamTestOptions()
	opts.Delay = 0
	lm := &fakeStreamer{chunks: map[string][]string{
		opts.StoryPrompt: {"Once", " upon"},
	}}
	var out bytes.Buffer
	if err := runStreamTest(context.Background(), lm, &out, opts); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "truncated") {
		t.Errorf("short reply should not be truncated:\n%s", out.String())
	}
}

func TestRunStreamTest_Error(t *testing.T) {
	boom := errors.New("connection refused")
	lm := &fakeStreamer{err: boom}
	opts := defaultStreamTestOptions()
	err := runStreamTest(context.Background(), lm, &bytes.Buffer{}, opts)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped stream error, got %v", err)
	}
}

func TestRunStreamTest_CancelledDuringDelay(t *testing.T) {
	opts := defaultStreamTestOptions()
	lm := &fakeStreamer{chunks: map[string][]string{opts.HelloPrompt: {"Hello"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runStreamTest(ctx, lm, &bytes.Buffer{}, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunInit_Ollama(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	// provider 1 (ollama), default endpoint, custom model
	in := strings.NewReader("1\n\nllama3.2\n")
	var out bytes.Buffer
	if err := runInit(in, &out, path); err != nil {
		t.Fatalf("runInit: %v", err)
	}
	if !strings.Contains(out.String(), "Config saved to "+path) {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	var raw struct {
		Provider  string                            `yaml:"provider"`
		Providers map[string]config.ProviderConfig `yaml:"providers"`
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw.Provider != "ollama" {
		t.Errorf("provider = %q, want ollama", raw.Provider)
	}
	pc := raw.Providers["ollama"]
	if pc.Model != "llama3.2" || pc.APIKey != "" || pc.BaseURL != "" {
		t.Errorf("unexpected ollama entry: %+v", pc)
	}
}

func TestRunInit_APIKeyProvider(t *testing.T) {
	providers := initProviders()
	idx := -1
	for i, p := range providers {
		if p == "openai" {
			idx = i + 1
		}
	}
	if providers[0] != "ollama" || idx < 0 {
		t.Fatalf("unexpected provider list: %v", providers)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	in := strings.NewReader(fmt.Sprintf("%d\nsk-test\n\n", idx))
	if err := runInit(in, &bytes.Buffer{}, path); err != nil {
		t.Fatalf("runInit: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "sk-test") || !strings.Contains(string(data), "provider: openai") {
		t.Errorf("unexpected config:\n%s", data)
	}
}

func TestRunInit_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"out of range", "99\n"},
		{"not a number", "abc\n"},
		{"empty key", "2\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := runInit(strings.NewReader(tt.input), &bytes.Buffer{}, path); err == nil {
				t.Fatal("expected error")
			}
			if _, err := os.Stat(path); err == nil {
				t.Error("config should not be written on error")
			}
		})
	}
}

func TestRunInit_ExistingConfigDeclined(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mode: plan\n"), 0600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := runInit(strings.NewReader("1\n\n\nn\n"), &out, path); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Aborted.") {
		t.Errorf("expected abort, got:\n%s", out.String())
	}
	data, _ := os.ReadFile(path)
	if string(data) != "mode: plan\n" {
		t.Errorf("config changed: %q", data)
	}
}

func TestRunScaffold(t *testing.T) {
	base := t.TempDir()
	var out bytes.Buffer
	if err := runScaffold(&out, base, scaffold.DefaultLayout("demo")); err != nil {
		t.Fatalf("runScaffold: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Created: "+filepath.Join(base, "demo", "demo", "cli.py")) {
		t.Errorf("missing created file in output:\n%s", got)
	}
	if !strings.HasSuffix(got, "Project structure created successfully!\n") {
		t.Errorf("missing success line:\n%s", got)
	}

	out.Reset()
	if err := runScaffold(&out, base, scaffold.DefaultLayout("demo")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("second run should report nothing to create:\n%s", out.String())
	}
}

func TestBuildProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
		wantName string
		wantErr  string
	}{
		{"ollama needs no key", "ollama", "", "ollama", ""},
		{"openai requires key", "openai", "", "", "API key not configured"},
		{"anthropic", "anthropic", "k", "anthropic", ""},
		{"deepseek", "deepseek", "k", "deepseek", ""},
		{"unknown", "nosuch", "k", "", "unknown provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Provider = tt.provider
			if tt.key != "" {
				cfg.Providers[tt.provider] = &config.ProviderConfig{APIKey: tt.key}
			}
			p, err := buildProvider(cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
			if want := config.KnownProviderModels[tt.provider]; p.DefaultModel() != want {
				t.Errorf("DefaultModel() = %q, want %q", p.DefaultModel(), want)
			}
		})
	}
}

func TestReadPipedStdin(t *testing.T) {
	got, err := readPipedStdin(strings.NewReader("  diff --git a b\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "diff --git a b" {
		t.Errorf("got %q", got)
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "version", "init", "scaffold", "stream-test"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered: %v", name, err)
		}
	}
}
