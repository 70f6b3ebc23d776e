// internal/commands/check.go
package klimax

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/mwiater/klimax/internal/logging"
	"github.com/mwiater/klimax/internal/transportfactory"
	"github.com/spf13/cobra"
)

var reachableVerdict = color.New(color.FgGreen).SprintFunc()
var unreachableVerdict = color.New(color.FgRed).SprintFunc()

// checkCmd probes the configured endpoint once without generating load.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the configured endpoint with a single tiny completion",
	Long: `Send one minimal completion request to the configured endpoint and report
whether it answers. The same probe runs automatically before every sweep; this
command runs it on its own so a misconfigured endpoint surfaces before a long
benchmark is scheduled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return fmt.Errorf("configuration is not initialized")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		tr, err := transportfactory.New(cfg)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := tr.Check(cmd.Context()); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s): %v\n",
				unreachableVerdict("UNREACHABLE:"), cfg.Endpoint, tr.Kind(), err)
			return fmt.Errorf("endpoint check failed: %w", err)
		}

		elapsed := time.Since(start).Round(time.Millisecond)
		logging.LogEvent("Endpoint check passed in %s", elapsed)
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s) answered in %s\n",
			reachableVerdict("REACHABLE:"), cfg.Endpoint, tr.Kind(), elapsed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
