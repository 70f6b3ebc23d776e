// internal/commands/analyze.go
package klimax

import (
	"github.com/spf13/cobra"
)

// analyzeCmd hosts commands that inspect sweep output and rebuild reports.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze sweep outputs",
	Long: `Tools for post-processing finished sweeps. Use these commands to turn a
persisted sweep JSON document back into summary artifacts without re-running
the benchmark.`,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
