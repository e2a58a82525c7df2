package cmd

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/locopilot/locopilot/internal/provider"
)

// chunkStreamer is the part of provider.LLM the smoke test needs.
type chunkStreamer interface {
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

type streamTestOptions struct {
	Label       string
	StoryPrompt string
	HelloPrompt string
	MaxChunk    int // last chunk index printed before truncating
	Delay       time.Duration
}

func defaultStreamTestOptions() streamTestOptions {
	return streamTestOptions{
		StoryPrompt: "Tell me a short story about a robot.",
		HelloPrompt: "Say hello world",
		MaxChunk:    20,
		Delay:       100 * time.Millisecond,
	}
}

func newStreamTestCmd() *cobra.Command {
	opts := defaultStreamTestOptions()

	cmd := &cobra.Command{
		Use:   "stream-test",
		Short: "Check that the configured model server streams responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := initConfig()
			if err != nil {
				return err
			}
			p, err := buildProvider(cfg)
			if err != nil {
				return err
			}
			model := cfg.ResolveModel()
			if model == "" {
				model = p.DefaultModel()
			}
			opts.Label = fmt.Sprintf("%s (%s)", p.Name(), model)

			ctx, cancel := signalContext()
			defer cancel()
			return runStreamTest(ctx, provider.NewLLM(p, model), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Delay, "delay", opts.Delay, "pause after each chunk of the inline test")
	cmd.Flags().StringVar(&opts.StoryPrompt, "prompt", opts.StoryPrompt, "prompt for the indexed chunk test")

	return cmd
}

// runStreamTest prints indexed chunks of one streamed reply, truncating
// after opts.MaxChunk, then streams a second reply inline.
func runStreamTest(ctx context.Context, lm chunkStreamer, out io.Writer, opts streamTestOptions) error {
	rule := strings.Repeat("=", 50)

	fmt.Fprintf(out, "Testing %s streaming...\n", opts.Label)
	fmt.Fprintln(out, "Starting stream...")
	fmt.Fprintln(out, rule)

	i := 0
	for chunk, err := range lm.Stream(ctx, opts.StoryPrompt) {
		if err != nil {
			return fmt.Errorf("stream: %w", err)
		}
		fmt.Fprintf(out, "[%d] %q\n", i, chunk)
		if i >= opts.MaxChunk {
			fmt.Fprintln(out, "... (truncated)")
			break
		}
		i++
	}

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Testing immediate output...")

	for chunk, err := range lm.Stream(ctx, opts.HelloPrompt) {
		if err != nil {
			return fmt.Errorf("stream: %w", err)
		}
		fmt.Fprint(out, chunk)
		if err := sleepCtx(ctx, opts.Delay); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, "\nDone!")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
