package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/locopilot/locopilot/internal/tui"
)

func newRunCmd() *cobra.Command {
	var (
		prompt    string
		format    string
		printLast bool
	)

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Execute a single prompt non-interactively",
		Example: `  locopilot run -P "explain what a goroutine leak is"
  locopilot run --mode plan "add a --verbose flag to the CLI"
  git diff | locopilot run -P "review this diff" --format jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				prompt = strings.Join(args, " ")
			}
			stdin, err := readPipedStdin(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if stdin != "" {
				prompt = strings.TrimSpace(prompt + "\n\n" + stdin)
			}
			if prompt == "" {
				return fmt.Errorf("a prompt is required: pass it as an argument, with --prompt / -P, or on stdin")
			}
			if format != "text" && format != "jsonl" {
				return fmt.Errorf("--format must be text or jsonl, got %q", format)
			}
			ui := tui.NewPipeIO(cmd.OutOrStdout(), cmd.ErrOrStderr(), format, printLast)
			return runOnce(prompt, ui)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "P", "", "the prompt to execute")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or jsonl")
	cmd.Flags().BoolVar(&printLast, "print-last", false, "print only the final reply")

	return cmd
}

// readPipedStdin returns stdin's content when it is not a terminal.
func readPipedStdin(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// runOnce executes a single prompt and exits.
func runOnce(prompt string, ui *tui.PipeIO) error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	a, err := newAgent(cfg, ui, newLogger())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	err = a.RunOnce(ctx, prompt)
	ui.Flush()
	return err
}
