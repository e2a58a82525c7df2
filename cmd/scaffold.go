package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/locopilot/locopilot/internal/scaffold"
)

func newScaffoldCmd() *cobra.Command {
	var (
		name       string
		layoutFile string
	)

	cmd := &cobra.Command{
		Use:   "scaffold [dir]",
		Short: "Create an empty project structure",
		Long: "Creates the locopilot Python package layout (or one read from --layout)\n" +
			"under dir, which defaults to the current directory. Existing files are never overwritten.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := "."
			if len(args) == 1 {
				base = args[0]
			}
			layout := scaffold.DefaultLayout(name)
			if layoutFile != "" {
				l, err := scaffold.LoadLayout(layoutFile)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("name") {
					l.Name = name
				}
				layout = l
			}
			return runScaffold(cmd.OutOrStdout(), base, layout)
		},
	}

	cmd.Flags().StringVar(&name, "name", "locopilot", "project (and package) name")
	cmd.Flags().StringVar(&layoutFile, "layout", "", "YAML layout file to use instead of the default")

	return cmd
}

func runScaffold(out io.Writer, base string, layout scaffold.Layout) error {
	created, err := scaffold.Create(base, layout)
	for _, p := range created {
		fmt.Fprintf(out, "Created: %s\n", p)
	}
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Fprintln(out, "Nothing to create; project structure already exists.")
		return nil
	}
	fmt.Fprintln(out, "Project structure created successfully!")
	return nil
}
