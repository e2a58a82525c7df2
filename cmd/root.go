package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/locopilot/locopilot/internal/agent"
	"github.com/locopilot/locopilot/internal/config"
	"github.com/locopilot/locopilot/internal/provider"
	"github.com/locopilot/locopilot/internal/session"
	"github.com/locopilot/locopilot/internal/tui"
)

var (
	cfgFile      string
	modelFlag    string
	providerFlag string
	modeFlag     string
	projectFlag  string
	logLevel     string
	debugFlag    bool
	noWatch      bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "locopilot",
		Short: "Coding assistant for local language models",
		Long: "locopilot is a conversational coding assistant that keeps session memory,\n" +
			"summarizes long conversations and tracks the files you change.",
		// Running locopilot with no subcommand starts chat mode.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/locopilot/config.yaml)")
	pf.StringVarP(&modelFlag, "model", "m", "", "override model")
	pf.StringVarP(&providerFlag, "provider", "p", "", "override provider (ollama, openai, anthropic, ...)")
	pf.StringVar(&modeFlag, "mode", "", "initial session mode: plan or do")
	pf.StringVar(&projectFlag, "project", "", "project root (default: current directory)")
	pf.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.BoolVar(&debugFlag, "debug", false, "shorthand for --log-level debug")
	pf.BoolVar(&noWatch, "no-watch", false, "do not watch the project for file changes")

	// Subcommands
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd(appVersion, appCommit, appDate))
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newScaffoldCmd())
	rootCmd.AddCommand(newStreamTestCmd())

	return rootCmd
}

func newVersionCmd(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "locopilot %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// displayVersion returns a formatted version string for the welcome banner,
// e.g. "v0.1.0 (abc1234)".
func displayVersion() string {
	v := "v" + appVersion
	if appCommit != "" && appCommit != "none" {
		v += " (" + appCommit + ")"
	}
	return v
}

// newLogger returns a text logger on stderr at the level chosen by flags.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if debugFlag {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config values
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if modeFlag != "" {
		cfg.Mode = strings.ToLower(modeFlag)
	}
	if projectFlag != "" {
		cfg.ProjectPath = projectFlag
	}
	if noWatch {
		cfg.Watch.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// providerBaseURLs references the canonical map in the config package.
var providerBaseURLs = config.KnownProviderBaseURLs

// buildProvider creates a Provider instance based on configuration.
func buildProvider(cfg *config.Config) (provider.Provider, error) {
	name := cfg.Provider
	pc := cfg.GetProviderConfig(name)
	model := cfg.ResolveModel()

	apiKey := pc.APIKey
	if apiKey == "" && name != "ollama" {
		return nil, fmt.Errorf(
			"API key not configured for provider %q.\n"+
				"Set it via:\n"+
				"  - config file: providers.%s.api_key\n"+
				"  - environment: LLM_API_KEY\n"+
				"  - run: locopilot init",
			name, name,
		)
	}

	switch name {
	case "anthropic":
		return provider.NewAnthropicProvider(apiKey, model), nil
	default:
		// Everything else, local Ollama included, speaks the OpenAI-compatible API.
		baseURL := pc.BaseURL
		if baseURL == "" {
			u, ok := providerBaseURLs[name]
			if !ok {
				return nil, fmt.Errorf("unknown provider %q; set providers.%s.base_url in config", name, name)
			}
			baseURL = u
		}
		return provider.NewOpenAIProvider(apiKey, baseURL, model), nil
	}
}

// newAgent wires config, provider, session memory and UI into an Agent.
func newAgent(cfg *config.Config, ui tui.IO, logger *slog.Logger) (*agent.Agent, error) {
	p, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = p.DefaultModel()
	}

	llm := provider.NewLLM(p, cfg.Model)
	mem, err := session.NewMemory(llm,
		session.WithMaxTokenLimit(cfg.Memory.MaxTokenLimit),
		session.WithSummarizationThreshold(cfg.Memory.SummarizationThreshold),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("session memory: %w", err)
	}
	return agent.New(p, mem, cfg, ui, logger), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
