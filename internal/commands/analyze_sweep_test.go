// internal/commands/analyze_sweep_test.go
package klimax

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mwiater/klimax/internal/loadgen"
	"github.com/mwiater/klimax/internal/logging"
	"github.com/mwiater/klimax/internal/results"
)

func writeSampleSweep(t *testing.T, dir string) string {
	t.Helper()
	result := loadgen.SweepResult{
		StartedAt:    time.Date(2025, 1, 31, 15, 45, 1, 0, time.UTC),
		CompletedAt:  time.Date(2025, 1, 31, 15, 47, 9, 0, time.UTC),
		Endpoint:     "http://bench.local/v1/chat/completions",
		EndpointType: "openai",
		Levels: []loadgen.LevelSummary{
			{
				Concurrency:  2,
				Requests:     2,
				Repetitions:  1,
				ResponseTime: loadgen.MetricSummary{Mean: 1.2},
				Throughput:   loadgen.MetricSummary{Mean: 1.6},
				SuccessRate:  loadgen.MetricSummary{Mean: 1},
				Runs: []loadgen.RunMetrics{
					{Requests: 2, Successes: 2, SuccessRate: 1, MeanResponseTime: 1.2, Throughput: 1.6},
				},
			},
		},
	}

	path := filepath.Join(dir, "sweep.json")
	if err := results.WriteSweepJSON(path, result); err != nil {
		t.Fatalf("write sweep JSON: %v", err)
	}
	return path
}

func TestAnalyzeSweepCommandRequiresInput(t *testing.T) {
	resetLocalFlag(analyzeSweepCmd, "input")
	resetBoundFlags()
	logPath := filepath.Join(t.TempDir(), "klimax.log")
	t.Cleanup(func() { _ = logging.Close() })

	out, err := runRoot(t, "analyze", "sweep", "--logFile", logPath)
	if err == nil {
		t.Fatalf("expected an error without --input, output:\n%s", out)
	}
	if !strings.Contains(err.Error(), "\"input\" not set") {
		t.Fatalf("expected required-flag error, got: %v", err)
	}
}

func TestAnalyzeSweepCommandRebuildsArtifacts(t *testing.T) {
	dir := t.TempDir()
	inputPath := writeSampleSweep(t, dir)
	logPath := filepath.Join(t.TempDir(), "klimax.log")

	configPath := writeTempConfig(t, fmt.Sprintf(`{"logFile": %q}`, logPath))
	pointViperAt(t, configPath)
	resetBoundFlags()
	t.Cleanup(func() {
		resetLocalFlag(analyzeSweepCmd, "input")
		resetLocalFlag(analyzeSweepCmd, "output-dir")
		resetLocalFlag(analyzeSweepCmd, "html-report")
	})

	out, err := runRoot(t, "analyze", "sweep", "--input", inputPath)
	if err != nil {
		t.Fatalf("analyze sweep failed: %v\noutput: %s", err, out)
	}

	if _, err := os.Stat(filepath.Join(dir, "sweep_summary.csv")); err != nil {
		t.Fatalf("expected regenerated summary CSV: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sweep_report.html")); err != nil {
		t.Fatalf("expected regenerated HTML report: %v", err)
	}
	if !strings.Contains(out, "Summary CSV written to") {
		t.Fatalf("expected summary CSV notice, got:\n%s", out)
	}
}
