package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/roadsafety-cli/internal/pipeline"
)

var (
	askScope  string
	askReport string
)

var askCmd = &cobra.Command{
	Use:   "ask [report.pdf] <question>",
	Short: "Ask the chatbot about an estimate",
	Long: `Estimates the given PDF and asks the question with the result as context.
With --report, the archived estimate with that id is used as context instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if askReport != "" {
			if len(args) != 1 {
				return eris.New("ask: with --report pass only the question")
			}
			return askArchived(cmd, askReport, args[0])
		}
		if len(args) != 2 {
			return eris.New("ask: pass a PDF and a question, or --report <id>")
		}

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		c := env.NewCoordinator()
		if err := uploadFile(ctx, c, args[0]); err != nil {
			return err
		}
		if _, err := c.EnterReview(); err != nil {
			return userError(err)
		}
		if _, err := c.Submit(ctx); err != nil {
			return userError(err)
		}

		answer, err := c.Ask(ctx, args[1], pipeline.Scope(askScope))
		if err != nil {
			return userError(err)
		}
		fmt.Println(answer)
		return nil
	},
}

// askArchived asks a question about an archived estimate. The archive is only
// read; nothing is loaded back into a pipeline run.
func askArchived(cmd *cobra.Command, id, question string) error {
	ctx := cmd.Context()
	if err := cfg.Validate("client"); err != nil {
		return err
	}
	a, err := openArchive(ctx)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	r, err := a.GetReport(ctx, id)
	if err != nil {
		return eris.Wrap(err, "ask")
	}

	backend, _ := newBackend(cfg)
	resp, err := backend.Ask(ctx, question, r.Result)
	if err != nil {
		return eris.Wrap(err, "ask")
	}
	_, err = fmt.Fprintln(os.Stdout, resp.Answer)
	return err
}

func init() {
	askCmd.Flags().StringVar(&askScope, "scope", string(pipeline.ScopeResult), "context sent with the question: result or analytics")
	askCmd.Flags().StringVar(&askReport, "report", "", "archived report id to use as context")
	rootCmd.AddCommand(askCmd)
}
