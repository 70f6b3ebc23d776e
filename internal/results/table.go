// internal/results/table.go
package results

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/klimax/internal/loadgen"
)

var (
	tableTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	tableHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	tableFootnoteStyle = lipgloss.NewStyle().Faint(true)
	rateHealthyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	rateDegradedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	rateFailingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
)

// WriteSummaryTable renders the per-level sweep summary as an aligned text
// table, one row per concurrency level with mean and standard deviation.
func WriteSummaryTable(out io.Writer, result loadgen.SweepResult) {
	title := "SCALING TEST SUMMARY (AVERAGED ACROSS REPETITIONS)"
	if len(result.Levels) == 1 {
		title = "LOAD TEST SUMMARY (AVERAGED ACROSS REPETITIONS)"
	}
	fmt.Fprintln(out, tableTitleStyle.Render("===== "+title+" ====="))

	header := fmt.Sprintf("%11s | %12s | %22s | %18s | %16s",
		"Concurrency", "Success Rate", "Mean Response Time (s)", "Throughput (req/s)", "Output Tokens/s")
	fmt.Fprintln(out, tableHeaderStyle.Render(header))
	fmt.Fprintln(out, strings.Repeat("-", len(header)))

	for _, level := range result.Levels {
		rate := fmt.Sprintf("%11.2f%%", level.SuccessRate.Mean*100)
		fmt.Fprintf(out, "%11d | %s | %15.2f ± %4.2f | %11.2f ± %4.2f | %9.2f ± %4.2f\n",
			level.Concurrency,
			successRateStyle(level.SuccessRate.Mean).Render(rate),
			level.ResponseTime.Mean, level.ResponseTime.StdDev,
			level.Throughput.Mean, level.Throughput.StdDev,
			level.OutputTokenThroughput.Mean, level.OutputTokenThroughput.StdDev,
		)
	}

	if result.Truncated {
		fmt.Fprintln(out, tableFootnoteStyle.Render("Sweep stopped early: later levels were skipped or cut short."))
	}
}

// successRateStyle picks the row color for a mean success rate.
func successRateStyle(rate float64) lipgloss.Style {
	switch {
	case rate >= 0.99:
		return rateHealthyStyle
	case rate >= 0.90:
		return rateDegradedStyle
	default:
		return rateFailingStyle
	}
}
