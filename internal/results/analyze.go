// internal/results/analyze.go
package results

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// AnalyzeOptions captures the inputs for rebuilding sweep artifacts.
type AnalyzeOptions struct {
	InputPath  string
	OutputDir  string
	HTMLReport bool
}

// AnalyzeSweep reloads a persisted sweep document and regenerates its derived
// artifacts: the summary CSV, the terminal table, and optionally the HTML
// report. Artifacts land next to the input unless an output directory is set.
func AnalyzeSweep(opts AnalyzeOptions, out io.Writer) error {
	result, err := LoadSweepJSON(opts.InputPath)
	if err != nil {
		return err
	}
	if len(result.Levels) == 0 {
		return fmt.Errorf("sweep file %q contains no levels", opts.InputPath)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(opts.InputPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating results directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(opts.InputPath), filepath.Ext(opts.InputPath))

	summaryPath := filepath.Join(dir, base+"_summary.csv")
	if err := WriteSummaryCSV(summaryPath, result); err != nil {
		return err
	}
	fmt.Fprintf(out, "Summary CSV written to %s\n", summaryPath)

	if opts.HTMLReport {
		htmlPath := filepath.Join(dir, base+"_report.html")
		if err := WriteHTMLReport(htmlPath, result); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", htmlPath)
	}

	fmt.Fprintln(out)
	WriteSummaryTable(out, result)
	return nil
}
