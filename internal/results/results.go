// internal/results/results.go
// Package results persists sweep artifacts: the per-request CSV, the level
// summary CSV, the sweep JSON document, the terminal summary table, and the
// self-contained HTML scaling report.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mwiater/klimax/internal/loadgen"
)

// timestampLayout names artifacts by sweep start time, e.g. 20250131_154501.
const timestampLayout = "20060102_150405"

// Basename returns the artifact base name for a sweep. Multi-level sweeps
// are scaling tests; single-level sweeps carry their level in the name.
func Basename(started time.Time, levels []int) string {
	stamp := started.Format(timestampLayout)
	if len(levels) == 1 {
		return fmt.Sprintf("load_test_%s_c%d", stamp, levels[0])
	}
	return fmt.Sprintf("scaling_test_%s", stamp)
}

// Paths resolves every artifact location for one sweep under the output root.
type Paths struct {
	Dir        string
	Base       string
	CSV        string
	SummaryCSV string
	JSON       string
	HTML       string
}

// NewPaths creates the output directory and returns the artifact paths for a
// sweep starting at the given time.
func NewPaths(outputDir string, started time.Time, levels []int) (Paths, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("error creating results directory: %w", err)
	}

	base := Basename(started, levels)
	return Paths{
		Dir:        outputDir,
		Base:       base,
		CSV:        filepath.Join(outputDir, base+".csv"),
		SummaryCSV: filepath.Join(outputDir, base+"_summary.csv"),
		JSON:       filepath.Join(outputDir, base+".json"),
		HTML:       filepath.Join(outputDir, base+"_report.html"),
	}, nil
}

// WriteSweepJSON writes the full sweep document to path.
func WriteSweepJSON(path string, result loadgen.SweepResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating result file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("error writing results to file: %w", err)
	}

	return nil
}

// LoadSweepJSON reads a sweep document previously written by WriteSweepJSON.
func LoadSweepJSON(path string) (loadgen.SweepResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return loadgen.SweepResult{}, fmt.Errorf("could not read sweep file %q: %w", path, err)
	}
	defer file.Close()

	var result loadgen.SweepResult
	if err := json.NewDecoder(file).Decode(&result); err != nil {
		return loadgen.SweepResult{}, fmt.Errorf("could not decode sweep file %q: %w", path, err)
	}

	return result, nil
}
