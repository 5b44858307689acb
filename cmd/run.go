package main

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roadsafety-cli/internal/model"
	"github.com/sells-group/roadsafety-cli/internal/report"
)

var (
	runEdits     []string
	runAnalytics bool
	runJSON      bool
)

var runCmd = &cobra.Command{
	Use:   "run <report.pdf>",
	Short: "Extract, estimate and summarize one audit report",
	Long:  "Runs the whole pipeline non-interactively. Use --edit to correct extracted rows before estimation, e.g. --edit '2:chainage=4+250'.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		edits, err := parseEdits(runEdits)
		if err != nil {
			return err
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
		for _, e := range edits {
			ok, err := c.UpdateField(e.ID, e.Field, e.Value)
			if err != nil {
				return userError(err)
			}
			if !ok {
				zap.L().Warn("edit skipped, no such intervention", zap.Int("id", e.ID))
			}
		}

		res, err := c.Submit(ctx)
		if err != nil {
			return userError(err)
		}

		if runJSON {
			return writeResultJSON(os.Stdout, res.Raw, res)
		}

		sum, err := c.Summary()
		if err != nil {
			return userError(err)
		}
		if err := report.RenderSummary(os.Stdout, sum); err != nil {
			return err
		}
		if !runAnalytics {
			return nil
		}
		a, err := c.Analytics()
		if err != nil {
			return userError(err)
		}
		return report.RenderAnalytics(os.Stdout, a)
	},
}

// edit is one --edit flag value.
type edit struct {
	ID    int
	Field model.Field
	Value string
}

// parseEdits parses "ID:field=value" flag values.
func parseEdits(raw []string) ([]edit, error) {
	edits := make([]edit, 0, len(raw))
	for _, r := range raw {
		idPart, rest, ok := strings.Cut(r, ":")
		if !ok {
			return nil, eris.Errorf("edit %q: want ID:field=value", r)
		}
		fieldPart, value, ok := strings.Cut(rest, "=")
		if !ok {
			return nil, eris.Errorf("edit %q: want ID:field=value", r)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil {
			return nil, eris.Wrapf(err, "edit %q: bad id", r)
		}
		field, err := model.ParseField(fieldPart)
		if err != nil {
			return nil, eris.Wrapf(err, "edit %q", r)
		}
		edits = append(edits, edit{ID: id, Field: field, Value: value})
	}
	return edits, nil
}

// writeResultJSON prints the estimate as the backend returned it, falling
// back to re-encoding the decoded value.
func writeResultJSON(w io.Writer, raw json.RawMessage, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(raw) > 0 {
		return enc.Encode(raw)
	}
	return enc.Encode(v)
}

func init() {
	runCmd.Flags().StringArrayVar(&runEdits, "edit", nil, "correct an extracted row before estimation (ID:field=value, repeatable)")
	runCmd.Flags().BoolVar(&runAnalytics, "analytics", false, "also print the analytics view")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the raw estimate as JSON instead of the summary")
	rootCmd.AddCommand(runCmd)
}

