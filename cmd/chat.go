package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/locopilot/locopilot/internal/tui"
	"github.com/locopilot/locopilot/internal/watch"
)

// runChat starts the interactive chat (REPL) mode.
func runChat() error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	ui := tui.NewTerminalIO()
	a, err := newAgent(cfg, ui, logger)
	if err != nil {
		return err
	}

	state := a.Memory().State()
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(tui.RenderWelcome(tui.WelcomeInfo{
			Version:   displayVersion(),
			Provider:  state.Backend,
			Model:     state.Model,
			SessionID: state.ID,
			Mode:      string(state.Mode),
			Project:   state.ProjectPath,
		}))
	}

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Watch.Enabled {
		w, err := watch.New(state.ProjectPath, a, watch.Options{
			Ignore: cfg.Watch.Ignore,
			Logger: logger,
		})
		if err != nil {
			// Chat still works without the watcher.
			logger.Warn("file watcher disabled", "error", err)
		} else {
			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = w.Run(ctx)
			}()
			defer func() {
				cancel()
				<-done
			}()
		}
	}

	err = a.Run(ctx)
	if n := len(a.FileEdits()); n > 0 {
		ui.SystemMessage(fmt.Sprintf("\nSession recorded %d file edit(s).", n))
	}
	return err
}
