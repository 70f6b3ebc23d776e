// internal/loadgen/trial.go
package loadgen

import (
	"context"
	"fmt"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/prompts"
)

// Trial runs every repetition for one concurrency level and aggregates the
// per-repetition metrics into a level summary.
type Trial struct {
	runner  *Runner
	cfg     *appconfig.Config
	source  prompts.Source
	sink    OutcomeSink
	onEvent func(Event)
}

// NewTrial creates a trial. The sink and event callback may be nil.
func NewTrial(runner *Runner, cfg *appconfig.Config, source prompts.Source, sink OutcomeSink, onEvent func(Event)) *Trial {
	return &Trial{runner: runner, cfg: cfg, source: source, sink: sink, onEvent: onEvent}
}

// Run executes the configured repetitions at the given concurrency. Each
// repetition draws a fresh prompt batch. Request failures never abort the
// trial; only prompt exhaustion, sink write failures, and cancellation do.
// When ctx expires mid-trial, the completed repetitions are summarized and
// returned.
func (t *Trial) Run(ctx context.Context, concurrency int) (LevelSummary, []LevelRun, error) {
	requests := t.cfg.RequestsFor(concurrency)
	reps := t.cfg.Repetitions
	if reps < 1 {
		reps = 1
	}

	var runs []LevelRun
	var runMetrics []RunMetrics
	for rep := 1; rep <= reps; rep++ {
		emit(t.onEvent, Event{Kind: EventRepetitionStart, Concurrency: concurrency, Repetition: rep})

		run, err := t.runner.Run(ctx, RunOptions{
			Concurrency: concurrency,
			Requests:    requests,
			Warmup:      t.cfg.WarmupRequests,
			Repetition:  rep,
			Prompts:     t.source,
			OnEvent:     t.onEvent,
		})
		if err != nil {
			return LevelSummary{}, runs, err
		}

		run.Metrics = Derive(run.Outcomes, t.cfg.FailedTokenPolicy)
		run.Metrics.Truncated = run.Truncated
		runs = append(runs, run)
		runMetrics = append(runMetrics, run.Metrics)

		if t.sink != nil {
			if err := t.sink.RecordRun(run); err != nil {
				return LevelSummary{}, runs, fmt.Errorf("loadgen: record run: %w", err)
			}
		}

		m := run.Metrics
		emit(t.onEvent, Event{Kind: EventRepetitionDone, Concurrency: concurrency, Repetition: rep, Metrics: &m})

		if ctx.Err() != nil {
			break
		}
	}

	return summarizeLevel(concurrency, requests, runMetrics), runs, nil
}
