// internal/commands/reporter.go
package klimax

import (
	"time"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/loadgen"
	"github.com/mwiater/klimax/internal/logging"
	"github.com/mwiater/klimax/internal/util"
)

// maxFailureDetail bounds failure detail in log lines; full bodies already
// land in the raw CSV.
const maxFailureDetail = 160

// newLogReporter returns the plain-mode progress callback: one log line per
// sweep milestone, failure lines for measured requests, and per-request lines
// only in debug mode.
func newLogReporter(cfg *appconfig.Config) func(loadgen.Event) {
	return func(ev loadgen.Event) {
		switch ev.Kind {
		case loadgen.EventSweepStarted:
			logging.LogEvent("Sweep started: %d levels, %d requests planned (warm-up included)",
				len(cfg.ConcurrencyLevels), ev.Planned)
		case loadgen.EventLevelStarted:
			logging.LogEvent("=== Concurrency %d ===", ev.Concurrency)
		case loadgen.EventRepetitionStart:
			logging.LogEvent("Concurrency %d: repetition %d/%d", ev.Concurrency, ev.Repetition, cfg.Repetitions)
		case loadgen.EventRequestDone:
			if ev.Outcome == nil {
				return
			}
			if !ev.Outcome.Success && !ev.Warmup {
				logging.LogEvent("Request %s failed (%s): %s",
					ev.Outcome.PromptID, ev.Outcome.ErrKind, util.TruncateRunes(ev.Outcome.ErrDetail, maxFailureDetail))
				return
			}
			if cfg.Debug {
				logging.LogOutcome(ev.Concurrency, ev.Repetition, ev.Outcome.PromptID,
					ev.Outcome.Success, ev.Outcome.Duration.Seconds(), string(ev.Outcome.ErrKind))
			}
		case loadgen.EventRepetitionDone:
			if ev.Metrics == nil {
				return
			}
			m := ev.Metrics
			logging.LogEvent("Concurrency %d repetition %d: %d/%d ok, %.2f req/s, %.2fs mean response, %.1f output tok/s",
				ev.Concurrency, ev.Repetition, m.Successes, m.Requests, m.Throughput, m.MeanResponseTime, m.OutputTokenThroughput)
		case loadgen.EventLevelDone:
			if ev.Summary == nil {
				return
			}
			s := ev.Summary
			logging.LogEvent("Concurrency %d done: %.2f req/s (stdev %.2f), %.2fs response (stdev %.2f), success %.1f%%",
				s.Concurrency, s.Throughput.Mean, s.Throughput.StdDev, s.ResponseTime.Mean, s.ResponseTime.StdDev, s.SuccessRate.Mean*100)
		case loadgen.EventLevelFailed:
			logging.LogEvent("Concurrency %d failed, skipping to the next level: %v", ev.Concurrency, ev.Err)
		case loadgen.EventBreak:
			logging.LogEvent("Pausing %s before the next level", cfg.BreakDelay())
		case loadgen.EventSweepDone:
			if ev.Result == nil {
				return
			}
			logging.LogEvent("Sweep complete: %d levels in %s",
				len(ev.Result.Levels), ev.Result.CompletedAt.Sub(ev.Result.StartedAt).Round(time.Millisecond))
		}
	}
}
