package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/roadsafety-cli/internal/model"
	"github.com/sells-group/roadsafety-cli/internal/report"
	"github.com/sells-group/roadsafety-cli/internal/store"
	"github.com/sells-group/roadsafety-cli/pkg/roadsafety"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect archived cost estimates",
	Long:  "Commands for listing and viewing estimates saved when store.enabled is true.",
}

// openArchive validates store settings and opens the archive.
func openArchive(ctx context.Context) (store.Archive, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store)
}

// -- reports list --

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived estimates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		filename, _ := cmd.Flags().GetString("filename")
		limit, _ := cmd.Flags().GetInt("limit")

		reports, err := a.ListReports(ctx, store.ReportFilter{Filename: filename, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "reports list")
		}
		if len(reports) == 0 {
			fmt.Fprintln(os.Stderr, "No reports found.")
			return nil
		}

		formatReportsList(os.Stdout, reports)
		return nil
	},
}

// -- reports show --

var reportsShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Show one archived estimate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		r, err := a.GetReport(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "reports show")
		}

		format, _ := cmd.Flags().GetString("format")
		return writeReport(os.Stdout, r, format)
	},
}

// writeReport renders an archived report as json, yaml or the text summary.
func writeReport(w io.Writer, r *model.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		var result any
		if err := json.Unmarshal(r.Result, &result); err != nil {
			return eris.Wrap(err, "reports show: decode result")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(map[string]any{
			"id":                  r.ID,
			"run_id":              r.RunID,
			"filename":            r.Filename,
			"total_interventions": r.TotalInterventions,
			"grand_total":         r.GrandTotal,
			"created_at":          r.CreatedAt,
			"result":              result,
		})
	case "text":
		res, err := roadsafety.DecodeEstimate(r.Result)
		if err != nil {
			return eris.Wrap(err, "reports show")
		}
		return report.RenderSummary(w, report.BuildSummary(res))
	default:
		return eris.Errorf("reports show: unknown format %q", format)
	}
}

// formatReportsList writes a tabular list of reports to w.
func formatReportsList(out io.Writer, reports []model.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFILENAME\tINTERVENTIONS\tGRAND_TOTAL\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t--------\t-------------\t-----------\t-------")

	for _, r := range reports {
		filename := r.Filename
		if len(filename) > 30 {
			filename = filename[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			truncateID(r.ID),
			filename,
			r.TotalInterventions,
			report.Money(r.GrandTotal),
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	reportsListCmd.Flags().String("filename", "", "filter by uploaded filename")
	reportsListCmd.Flags().Int("limit", 50, "max number of reports to display")
	reportsShowCmd.Flags().String("format", "text", "output format: text, json or yaml")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	rootCmd.AddCommand(reportsCmd)
}
