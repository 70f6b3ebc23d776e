// internal/commands/sweep.go
package klimax

import (
	"fmt"
	"strings"
	"time"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/loadgen"
	"github.com/mwiater/klimax/internal/logging"
	"github.com/mwiater/klimax/internal/prompts"
	"github.com/mwiater/klimax/internal/results"
	"github.com/mwiater/klimax/internal/transportfactory"
	"github.com/mwiater/klimax/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	sweepProfile string
	sweepLive    bool

	// runDashboard is a function alias to tui.Run so tests can substitute the
	// interactive path.
	runDashboard = tui.Run
)

// sweepCmd runs the full benchmark against the configured endpoint.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the concurrency scaling sweep against the configured endpoint",
	Long: `Step through the configured concurrency levels in order, repeating each
level the configured number of times, and write the raw per-request CSV, the
sweep JSON document, the summary CSV, and the HTML scaling report into the
output directory. Progress is reported as log lines unless --live selects the
terminal dashboard.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return fmt.Errorf("configuration is not initialized")
		}
		applyProfile(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		tr, err := transportfactory.New(cfg)
		if err != nil {
			return err
		}
		source, err := promptSource(cfg)
		if err != nil {
			return err
		}

		paths, err := results.NewPaths(cfg.OutputDirPath(), time.Now(), cfg.ConcurrencyLevels)
		if err != nil {
			return err
		}
		sink, err := results.NewCSVWriter(paths.CSV, tr.Kind())
		if err != nil {
			return err
		}

		opts := loadgen.SweeperOptions{
			Config:    cfg,
			Transport: tr,
			Prompts:   source,
			Sink:      sink,
		}

		var result *loadgen.SweepResult
		if sweepLive {
			result, err = runDashboard(cmd.Context(), opts)
		} else {
			opts.OnEvent = newLogReporter(cfg)
			result, err = loadgen.NewSweeper(opts).Run(cmd.Context())
		}
		if closeErr := sink.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("sweep aborted before any level completed")
		}

		return writeSweepArtifacts(cmd, cfg, paths, *result)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&sweepProfile, "profile", "",
		fmt.Sprintf("concurrency preset (%s); ignored when levels are set explicitly", strings.Join(appconfig.KnownProfiles(), ", ")))
	sweepCmd.Flags().BoolVar(&sweepLive, "live", false, "render the live terminal dashboard instead of log-line progress")
}

// applyProfile swaps in a preset level ladder. Levels pinned explicitly, via
// flag or config file, always win over the profile.
func applyProfile(cmd *cobra.Command, cfg *appconfig.Config) {
	if sweepProfile == "" {
		return
	}
	if cmd.Flags().Changed("concurrencyLevels") || viper.InConfig("concurrencyLevels") {
		logging.LogEvent("Ignoring profile %q: concurrency levels are set explicitly", sweepProfile)
		return
	}
	cfg.ConcurrencyLevels = appconfig.LevelsForProfile(sweepProfile)
	logging.LogEvent("Sweep profile %q selected: levels %v", sweepProfile, cfg.ConcurrencyLevels)
}

// promptSource builds the prompt feeder for the configured mode.
func promptSource(cfg *appconfig.Config) (prompts.Source, error) {
	if cfg.Prompts.Mode == appconfig.PromptModeFile {
		return prompts.NewFilePool(cfg.Prompts.File, cfg.Prompts.Cycle)
	}
	return prompts.NewGenerator(cfg.Prompts.TargetTokens), nil
}

// writeSweepArtifacts persists the sweep document and its derived artifacts,
// then prints the per-level summary table.
func writeSweepArtifacts(cmd *cobra.Command, cfg *appconfig.Config, paths results.Paths, result loadgen.SweepResult) error {
	out := cmd.OutOrStdout()

	if err := results.WriteSweepJSON(paths.JSON, result); err != nil {
		return err
	}
	if err := results.WriteSummaryCSV(paths.SummaryCSV, result); err != nil {
		return err
	}

	logging.LogEvent("Raw results written to %s", paths.CSV)
	logging.LogEvent("Sweep document written to %s", paths.JSON)
	logging.LogEvent("Summary CSV written to %s", paths.SummaryCSV)

	fmt.Fprintf(out, "\nRaw results:  %s\n", paths.CSV)
	fmt.Fprintf(out, "Sweep JSON:   %s\n", paths.JSON)
	fmt.Fprintf(out, "Summary CSV:  %s\n", paths.SummaryCSV)

	if cfg.HTMLReport {
		if err := results.WriteHTMLReport(paths.HTML, result); err != nil {
			return err
		}
		logging.LogEvent("HTML report written to %s", paths.HTML)
		fmt.Fprintf(out, "HTML report:  %s\n", paths.HTML)
	}

	fmt.Fprintln(out)
	results.WriteSummaryTable(out, result)

	if result.Truncated {
		fmt.Fprintln(out, "\nSweep stopped before all levels completed; artifacts cover the portion that ran.")
	}
	return nil
}
