package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/roadsafety-cli/internal/chainage"
)

var chainageJSON bool

var chainageCmd = &cobra.Command{
	Use:   "chainage <text>",
	Short: "Parse a chainage expression into meters",
	Example: `  roadsafety chainage "362+380 to 362+500"
  roadsafety chainage 4+200 --json`,
	Args: cobra.MinimumNArgs(1),
	// Pure parsing; no config or logger needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSpan(os.Stdout, strings.Join(args, " "), chainageJSON)
	},
}

func printSpan(w io.Writer, text string, asJSON bool) error {
	span := chainage.Parse(text)
	if asJSON {
		return json.NewEncoder(w).Encode(span)
	}
	_, err := fmt.Fprintf(w, "start_m=%d end_m=%d length_m=%d\n", span.StartM, span.EndM, span.LengthM)
	return err
}

func init() {
	chainageCmd.Flags().BoolVar(&chainageJSON, "json", false, "print JSON")
	rootCmd.AddCommand(chainageCmd)
}
