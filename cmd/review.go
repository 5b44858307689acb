package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/roadsafety-cli/internal/tui"
)

var reviewCmd = &cobra.Command{
	Use:   "review <report.pdf>",
	Short: "Review extracted interventions interactively, then estimate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		c := env.NewCoordinator()
		if err := uploadFile(ctx, c, args[0]); err != nil {
			return err
		}

		p := tea.NewProgram(tui.New(ctx, c), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil {
			return eris.Wrap(err, "review")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
