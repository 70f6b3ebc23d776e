// internal/loadgen/metrics.go
package loadgen

import (
	"time"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/stats"
)

// Derive computes the repetition metrics from a batch of outcomes.
//
// Throughput rates divide by the batch window: the span from the earliest
// request start to the latest response end. Under the default "exclude"
// token policy only successes bound the window and contribute tokens; the
// "zero" policy lets failed requests widen the window while still
// contributing no tokens, which yields more conservative rates. When the
// window collapses to zero despite successes, the sum of their durations is
// used instead.
func Derive(outcomes []Outcome, policy string) RunMetrics {
	m := RunMetrics{Requests: len(outcomes)}

	var winStart, winEnd time.Time
	var durations []float64
	for _, o := range outcomes {
		if o.Success {
			m.Successes++
			m.TotalOutputTokens += o.OutputTokens
			m.TotalInputTokens += o.InputTokens
			if secs := o.Duration.Seconds(); secs > 0 {
				durations = append(durations, secs)
			}
		} else {
			m.Failures++
			if m.ErrorCounts == nil {
				m.ErrorCounts = make(map[string]int)
			}
			m.ErrorCounts[string(o.ErrKind)]++
		}

		if o.Success || policy == appconfig.TokenPolicyZero {
			if winStart.IsZero() || o.Start.Before(winStart) {
				winStart = o.Start
			}
			if winEnd.IsZero() || o.End.After(winEnd) {
				winEnd = o.End
			}
		}
	}

	m.TotalTokens = m.TotalOutputTokens + m.TotalInputTokens
	if m.Requests > 0 {
		m.SuccessRate = float64(m.Successes) / float64(m.Requests)
	}
	if len(durations) > 0 {
		m.MeanResponseTime = stats.Mean(durations)
	}

	window := 0.0
	if !winStart.IsZero() && winEnd.After(winStart) {
		window = winEnd.Sub(winStart).Seconds()
	}
	if window == 0 && m.Successes > 0 {
		for _, d := range durations {
			window += d
		}
	}
	m.WindowSeconds = window

	if window > 0 {
		m.Throughput = float64(m.Successes) / window
		m.OutputTokenThroughput = float64(m.TotalOutputTokens) / window
		m.CombinedTokenThroughput = float64(m.TotalTokens) / window
	}
	return m
}

// summarize reduces per-repetition values to a mean and sample stddev.
func summarize(values []float64) MetricSummary {
	if len(values) == 0 {
		return MetricSummary{}
	}
	return MetricSummary{Mean: stats.Mean(values), StdDev: stats.SampleStdDev(values)}
}

// summarizeLevel folds the repetition metrics for one level into a summary.
// Response time averages only repetitions that produced a non-zero mean, so
// an all-failure repetition does not drag the latency figure to zero.
func summarizeLevel(concurrency, requests int, runs []RunMetrics) LevelSummary {
	summary := LevelSummary{
		Concurrency: concurrency,
		Requests:    requests,
		Repetitions: len(runs),
		Runs:        runs,
	}

	var responseTimes, throughputs, successRates, outputRates, combinedRates []float64
	for _, run := range runs {
		if run.MeanResponseTime > 0 {
			responseTimes = append(responseTimes, run.MeanResponseTime)
		}
		throughputs = append(throughputs, run.Throughput)
		successRates = append(successRates, run.SuccessRate)
		outputRates = append(outputRates, run.OutputTokenThroughput)
		combinedRates = append(combinedRates, run.CombinedTokenThroughput)
		if run.Truncated {
			summary.Truncated = true
		}
	}

	summary.ResponseTime = summarize(responseTimes)
	summary.Throughput = summarize(throughputs)
	summary.SuccessRate = summarize(successRates)
	summary.OutputTokenThroughput = summarize(outputRates)
	summary.CombinedTokenThroughput = summarize(combinedRates)
	return summary
}
