// internal/commands/analyze_sweep.go
package klimax

import (
	"github.com/mwiater/klimax/internal/results"
	"github.com/spf13/cobra"
)

var analyzeSweepOpts results.AnalyzeOptions

// analyzeSweepCmd rebuilds summary artifacts from a persisted sweep JSON.
var analyzeSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Regenerate summary artifacts from a sweep JSON document",
	Long: `Reload the JSON document written by a sweep, recompute the summary CSV and
the HTML scaling report, and print the per-level summary table. Useful after
editing report templates or when the original artifacts were lost.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return results.AnalyzeSweep(analyzeSweepOpts, cmd.OutOrStdout())
	},
}

func init() {
	analyzeSweepCmd.Flags().StringVar(&analyzeSweepOpts.InputPath, "input", "", "Path to a sweep JSON document (required)")
	analyzeSweepCmd.Flags().StringVar(&analyzeSweepOpts.OutputDir, "output-dir", "", "Directory for regenerated artifacts (defaults to the input's directory)")
	analyzeSweepCmd.Flags().BoolVar(&analyzeSweepOpts.HTMLReport, "html-report", true, "Regenerate the HTML scaling report")
	_ = analyzeSweepCmd.MarkFlagRequired("input")

	analyzeCmd.AddCommand(analyzeSweepCmd)
}
