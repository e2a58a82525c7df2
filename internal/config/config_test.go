package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// clearEnv blanks every variable applyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LOCOPILOT_PROVIDER", "LOCOPILOT_MODEL", "LOCOPILOT_MODE",
		"OLLAMA_HOST", "LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "ollama" {
		t.Errorf("expected provider ollama, got %q", cfg.Provider)
	}
	if cfg.Mode != "do" {
		t.Errorf("expected mode do, got %q", cfg.Mode)
	}
	if cfg.Memory.MaxTokenLimit != 4000 || cfg.Memory.SummarizationThreshold != 3000 {
		t.Errorf("unexpected memory defaults: %+v", cfg.Memory)
	}
	if !cfg.Watch.Enabled {
		t.Error("watcher should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "ollama" || cfg.Providers == nil {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, `
provider: anthropic
model: claude-sonnet-4-20250514
mode: plan
project_path: /src/app
memory:
  max_token_limit: 8000
  summarization_threshold: 6000
watch:
  enabled: false
providers:
  anthropic:
    api_key: sk-test
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("expected provider anthropic, got %q", cfg.Provider)
	}
	if cfg.Mode != "plan" || cfg.ProjectPath != "/src/app" {
		t.Errorf("unexpected mode/project: %q %q", cfg.Mode, cfg.ProjectPath)
	}
	if cfg.Memory.MaxTokenLimit != 8000 || cfg.Memory.SummarizationThreshold != 6000 {
		t.Errorf("unexpected memory: %+v", cfg.Memory)
	}
	if cfg.Watch.Enabled {
		t.Error("watch.enabled should be false")
	}
	if got := cfg.GetProviderConfig("anthropic").APIKey; got != "sk-test" {
		t.Errorf("expected api key sk-test, got %q", got)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, "provider: [unterminated\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadRejectsThresholdAboveLimit(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, `
memory:
  max_token_limit: 100
  summarization_threshold: 200
`)
	_, err := Load(p)
	if err == nil || !strings.Contains(err.Error(), "summarization_threshold") {
		t.Fatalf("expected threshold error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"plan mode", func(c *Config) { c.Mode = "plan" }, false},
		{"empty mode", func(c *Config) { c.Mode = "" }, false},
		{"bad mode", func(c *Config) { c.Mode = "yolo" }, true},
		{"threshold equals limit", func(c *Config) { c.Memory.SummarizationThreshold = c.Memory.MaxTokenLimit }, false},
		{"threshold above limit", func(c *Config) { c.Memory.SummarizationThreshold = c.Memory.MaxTokenLimit + 1 }, true},
		{"zero limit", func(c *Config) { c.Memory.MaxTokenLimit = 0; c.Memory.SummarizationThreshold = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOCOPILOT_PROVIDER", "openai")
	t.Setenv("LOCOPILOT_MODE", "PLAN")
	t.Setenv("LLM_API_KEY", "sk-env")
	t.Setenv("LLM_BASE_URL", "http://proxy.local/v1")
	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("expected provider openai, got %q", cfg.Provider)
	}
	if cfg.Mode != "plan" {
		t.Errorf("expected mode plan, got %q", cfg.Mode)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", cfg.Model)
	}
	oc := cfg.GetProviderConfig("openai")
	if oc.APIKey != "sk-env" || oc.BaseURL != "http://proxy.local/v1" {
		t.Errorf("unexpected openai config: %+v", oc)
	}
	if got := cfg.GetProviderConfig("anthropic").APIKey; got != "sk-ant" {
		t.Errorf("expected anthropic key sk-ant, got %q", got)
	}
}

func TestEnvModelPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOCOPILOT_MODEL", "a")
	t.Setenv("LLM_MODEL", "b")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "b" {
		t.Errorf("LLM_MODEL should win, got %q", cfg.Model)
	}
}

func TestOllamaHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:11434", "http://localhost:11434/v1"},
		{"http://localhost:11434/", "http://localhost:11434/v1"},
		{"http://gpu-box:11434/v1", "http://gpu-box:11434/v1"},
		{"127.0.0.1:11434", "http://127.0.0.1:11434/v1"},
	}
	for _, tt := range tests {
		if got := ollamaBaseURL(tt.in); got != tt.want {
			t.Errorf("ollamaBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	clearEnv(t)
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetProviderConfig("ollama").BaseURL; got != "http://gpu-box:11434/v1" {
		t.Errorf("expected ollama base url from OLLAMA_HOST, got %q", got)
	}
}

func TestResolveModel(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ResolveModel(); got != KnownProviderModels["ollama"] {
		t.Errorf("expected provider default %q, got %q", KnownProviderModels["ollama"], got)
	}
	cfg.Providers["ollama"] = &ProviderConfig{Model: "llama3.2"}
	if got := cfg.ResolveModel(); got != "llama3.2" {
		t.Errorf("expected provider model, got %q", got)
	}
	cfg.Model = "qwen3:8b"
	if got := cfg.ResolveModel(); got != "qwen3:8b" {
		t.Errorf("expected global model, got %q", got)
	}
}

func TestGetProviderConfigMissing(t *testing.T) {
	cfg := DefaultConfig()
	pc := cfg.GetProviderConfig("nope")
	if pc == nil || pc.APIKey != "" {
		t.Errorf("expected empty config, got %+v", pc)
	}
}

func TestEmbeddedProviderDefaults(t *testing.T) {
	defs := make(map[string]ProviderDefaults)
	if err := yaml.Unmarshal(defaultProvidersYAML, &defs); err != nil {
		t.Fatalf("embedded defaults do not parse: %v", err)
	}
	o, ok := defs["ollama"]
	if !ok {
		t.Fatal("ollama missing from embedded defaults")
	}
	if o.BaseURL != "http://localhost:11434/v1" || o.DefaultModel != "qwen3:1.7b" {
		t.Errorf("unexpected ollama defaults: %+v", o)
	}
	if defs["anthropic"].DefaultModel == "" {
		t.Error("anthropic default model missing")
	}
}

func TestSaveProviderToFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	existing := "model: stale\nmode: plan\nmemory:\n  max_token_limit: 5000\n"
	if err := os.WriteFile(p, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	err := SaveProviderToFile(p, "ollama", ProviderConfig{BaseURL: "http://localhost:11434/v1", Model: "qwen3:1.7b"})
	if err != nil {
		t.Fatalf("SaveProviderToFile: %v", err)
	}

	clearEnv(t)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "ollama" {
		t.Errorf("expected provider ollama, got %q", cfg.Provider)
	}
	if cfg.Model != "" {
		t.Errorf("stale global model should be cleared, got %q", cfg.Model)
	}
	if cfg.Mode != "plan" || cfg.Memory.MaxTokenLimit != 5000 {
		t.Errorf("other settings should survive: mode=%q limit=%d", cfg.Mode, cfg.Memory.MaxTokenLimit)
	}
	if got := cfg.GetProviderConfig("ollama").Model; got != "qwen3:1.7b" {
		t.Errorf("expected saved model, got %q", got)
	}

	info, err := os.Stat(p)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}
