// Package config loads and manages locopilot configuration.
// Configuration source priority (highest to lowest):
// 1. Environment variables (OLLAMA_HOST, LLM_API_KEY, LLM_BASE_URL, LLM_MODEL, ANTHROPIC_API_KEY, etc.)
// 2. Config file path specified via --config flag
// 3. ~/.config/locopilot/config.yaml
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed providers_default.yaml
var defaultProvidersYAML []byte

// ProviderDefaults holds the default base URL and model for a provider.
type ProviderDefaults struct {
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

// LoadProviderDefaults parses the embedded defaults and merges any user
// overrides from ~/.config/locopilot/providers.yaml.
func LoadProviderDefaults() map[string]ProviderDefaults {
	defs := make(map[string]ProviderDefaults)
	_ = yaml.Unmarshal(defaultProvidersYAML, &defs)

	dir, err := Dir()
	if err == nil {
		if data, err := os.ReadFile(filepath.Join(dir, "providers.yaml")); err == nil {
			userDefs := make(map[string]ProviderDefaults)
			if yaml.Unmarshal(data, &userDefs) == nil {
				for name, ud := range userDefs {
					d := defs[name]
					if ud.BaseURL != "" {
						d.BaseURL = ud.BaseURL
					}
					if ud.DefaultModel != "" {
						d.DefaultModel = ud.DefaultModel
					}
					defs[name] = d
				}
			}
		}
	}
	return defs
}

// ProviderConfig holds configuration for a single provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// MemoryConfig sizes the conversation memory.
type MemoryConfig struct {
	// MaxTokenLimit is the token budget of the conversation, default 4000.
	MaxTokenLimit int `yaml:"max_token_limit"`

	// SummarizationThreshold: once the estimated tokens exceed this value the
	// conversation is summarized. Must not exceed MaxTokenLimit. Default 3000.
	SummarizationThreshold int `yaml:"summarization_threshold"`
}

// WatchConfig controls the project file watcher.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`

	// Ignore lists extra directory names to skip (dot directories are always skipped).
	Ignore []string `yaml:"ignore"`
}

// Config is the complete configuration structure for locopilot.
type Config struct {
	// Provider is the active provider name (e.g. "ollama", "anthropic", "openai")
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// Providers holds per-provider configuration.
	Providers map[string]*ProviderConfig `yaml:"providers"`

	// Mode is the initial session mode: "do" (default) or "plan".
	Mode string `yaml:"mode"`

	// ProjectPath is the project root. Empty = current working directory.
	ProjectPath string `yaml:"project_path"`

	// SystemPrompt is a custom system prompt (empty uses default).
	SystemPrompt string `yaml:"system_prompt"`

	// MaxResponseTokens caps each assistant reply. 0 = provider default.
	MaxResponseTokens int `yaml:"max_response_tokens"`

	Memory MemoryConfig `yaml:"memory"`
	Watch  WatchConfig  `yaml:"watch"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:  "ollama",
		Mode:      "do",
		Providers: make(map[string]*ProviderConfig),
		Memory: MemoryConfig{
			MaxTokenLimit:          4000,
			SummarizationThreshold: 3000,
		},
		Watch: WatchConfig{
			Enabled: true,
			Ignore:  []string{"node_modules", "vendor", "__pycache__"},
		},
	}
}

// Dir returns ~/.config/locopilot.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "locopilot"), nil
}

// DefaultPath returns ~/.config/locopilot/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file and merges environment variable overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Determine config file path
	if configPath == "" {
		if p, err := DefaultPath(); err == nil {
			configPath = p
		}
	}

	// Read config file (use defaults if not found)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	// Initialize providers map
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	switch c.Mode {
	case "", "do", "plan":
	default:
		errs = append(errs, fmt.Errorf("mode %q must be \"do\" or \"plan\"", c.Mode))
	}
	if c.Memory.MaxTokenLimit <= 0 {
		errs = append(errs, fmt.Errorf("memory.max_token_limit must be positive, got %d", c.Memory.MaxTokenLimit))
	}
	if c.Memory.SummarizationThreshold > c.Memory.MaxTokenLimit {
		errs = append(errs, fmt.Errorf("memory.summarization_threshold (%d) exceeds memory.max_token_limit (%d)",
			c.Memory.SummarizationThreshold, c.Memory.MaxTokenLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// GetProviderConfig returns the config for the named provider, or an empty config if not found.
func (c *Config) GetProviderConfig(name string) *ProviderConfig {
	if pc, ok := c.Providers[name]; ok {
		return pc
	}
	return &ProviderConfig{}
}

// ResolveModel picks the model for the active provider:
// config model > provider model > provider default.
func (c *Config) ResolveModel() string {
	if c.Model != "" {
		return c.Model
	}
	if pc := c.GetProviderConfig(c.Provider); pc.Model != "" {
		return pc.Model
	}
	return KnownProviderModels[c.Provider]
}

var (
	// KnownProviderBaseURLs maps well-known provider names to their base URLs.
	// Populated from providers_default.yaml (embedded) + user overrides.
	KnownProviderBaseURLs map[string]string

	// KnownProviderModels maps well-known provider names to their default models.
	// Populated from providers_default.yaml (embedded) + user overrides.
	KnownProviderModels map[string]string
)

func init() {
	defs := LoadProviderDefaults()
	KnownProviderBaseURLs = make(map[string]string, len(defs))
	KnownProviderModels = make(map[string]string, len(defs))
	for name, d := range defs {
		if d.BaseURL != "" {
			KnownProviderBaseURLs[name] = d.BaseURL
		}
		if d.DefaultModel != "" {
			KnownProviderModels[name] = d.DefaultModel
		}
	}
}

// SaveProviderToFile persists a single provider's config and the active provider
// name into cfgPath, preserving all other user settings.
func SaveProviderToFile(cfgPath, providerName string, pc ProviderConfig) error {
	// Read existing file into a generic map to preserve unknown fields.
	raw := make(map[string]any)
	if data, err := os.ReadFile(cfgPath); err == nil {
		_ = yaml.Unmarshal(data, &raw) // ignore errors; start fresh if corrupt
	}

	// Ensure providers sub-map exists.
	providers, _ := raw["providers"].(map[string]any)
	if providers == nil {
		providers = make(map[string]any)
	}

	entry := map[string]any{}
	if pc.APIKey != "" {
		entry["api_key"] = pc.APIKey
	}
	if pc.BaseURL != "" {
		entry["base_url"] = pc.BaseURL
	}
	if pc.Model != "" {
		entry["model"] = pc.Model
	}
	providers[providerName] = entry
	raw["providers"] = providers

	// Set active provider and clear stale global model override.
	raw["provider"] = providerName
	delete(raw, "model")

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(cfgPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Provider selection first so generic overrides land on the right provider.
	if v := os.Getenv("LOCOPILOT_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("LOCOPILOT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("LOCOPILOT_MODE"); v != "" {
		cfg.Mode = strings.ToLower(v)
	}

	// Ollama host, e.g. http://localhost:11434
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		providerEntry(cfg, "ollama").BaseURL = ollamaBaseURL(v)
	}

	// Generic overrides
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		providerEntry(cfg, cfg.Provider).APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		providerEntry(cfg, cfg.Provider).BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}

	// Anthropic-specific
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		providerEntry(cfg, "anthropic").APIKey = v
	}
}

func providerEntry(cfg *Config, name string) *ProviderConfig {
	if cfg.Providers[name] == nil {
		cfg.Providers[name] = &ProviderConfig{}
	}
	return cfg.Providers[name]
}

// ollamaBaseURL turns an OLLAMA_HOST value into the OpenAI-compatible endpoint.
func ollamaBaseURL(host string) string {
	host = strings.TrimRight(host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	if !strings.HasSuffix(host, "/v1") {
		host += "/v1"
	}
	return host
}
