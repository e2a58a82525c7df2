package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/locopilot/locopilot/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive configuration wizard",
		Long:  "Guides you through setting up locopilot: choose a provider, point it at a model, and save the config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), path)
		},
	}
}

// initProviders lists the wizard's choices; local Ollama comes first.
func initProviders() []string {
	names := make([]string, 0, len(config.KnownProviderModels))
	for name := range config.KnownProviderModels {
		if name != "ollama" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return append([]string{"ollama"}, names...)
}

func runInit(in io.Reader, out io.Writer, cfgPath string) error {
	reader := bufio.NewReader(in)
	ask := func(prompt string) string {
		fmt.Fprint(out, prompt)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	fmt.Fprintln(out, "Welcome to the locopilot configuration wizard!")
	fmt.Fprintln(out)

	providers := initProviders()
	fmt.Fprintln(out, "Available providers:")
	for i, p := range providers {
		fmt.Fprintf(out, "  %d. %s\n", i+1, p)
	}

	selected := 0
	if input := ask(fmt.Sprintf("\nSelect provider (1-%d) [1]: ", len(providers))); input != "" {
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(providers) {
			return fmt.Errorf("invalid selection %q", input)
		}
		selected = n - 1
	}
	name := providers[selected]
	fmt.Fprintf(out, "Selected: %s\n\n", name)

	var pc config.ProviderConfig
	if name == "ollama" {
		def := config.KnownProviderBaseURLs["ollama"]
		if v := ask(fmt.Sprintf("Ollama endpoint [%s]: ", def)); v != "" {
			pc.BaseURL = v
		}
	} else {
		pc.APIKey = ask(fmt.Sprintf("Enter API key for %s: ", name))
		if pc.APIKey == "" {
			return fmt.Errorf("API key cannot be empty")
		}
	}
	if v := ask(fmt.Sprintf("Model [%s]: ", config.KnownProviderModels[name])); v != "" {
		pc.Model = v
	}

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Fprintf(out, "\nConfig file already exists at %s\n", cfgPath)
		if answer := ask("Update it? Other settings are kept. [y/N]: "); strings.ToLower(answer) != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := config.SaveProviderToFile(cfgPath, name, pc); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nConfig saved to %s\n", cfgPath)
	fmt.Fprintln(out, "You can now run: locopilot")
	return nil
}
