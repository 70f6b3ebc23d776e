// internal/loadgen/runner.go
package loadgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mwiater/klimax/internal/prompts"
)

// Runner executes one repetition at a fixed concurrency level.
type Runner struct {
	executor *Executor
	limiter  *rate.Limiter
}

// NewRunner creates a runner. A positive ratePerSecond caps dispatch across
// all workers; zero leaves dispatch unthrottled.
func NewRunner(executor *Executor, ratePerSecond float64) *Runner {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &Runner{executor: executor, limiter: limiter}
}

// RunOptions configures one repetition.
type RunOptions struct {
	Concurrency int
	Requests    int
	Warmup      int
	Repetition  int
	Prompts     prompts.Source
	OnEvent     func(Event)
}

// Run performs the warm-up batch followed by the measured batch, both at the
// configured concurrency. Warm-up outcomes are reported as events but never
// included in the returned run. A Requests value of zero or less defaults to
// one measured request per worker.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (LevelRun, error) {
	if opts.Concurrency < 1 {
		return LevelRun{}, fmt.Errorf("loadgen: concurrency must be at least 1, got %d", opts.Concurrency)
	}
	if opts.Prompts == nil {
		return LevelRun{}, fmt.Errorf("loadgen: prompt source is required")
	}
	requests := opts.Requests
	if requests <= 0 {
		requests = opts.Concurrency
	}
	warmup := opts.Warmup
	if warmup < 0 {
		warmup = 0
	}

	records, err := opts.Prompts.Batch(ctx, warmup+requests)
	if err != nil {
		return LevelRun{}, fmt.Errorf("loadgen: fetch prompts: %w", err)
	}

	if warmup > 0 {
		r.batch(ctx, opts, records[:warmup], true)
	}

	run := LevelRun{
		Concurrency: opts.Concurrency,
		Repetition:  opts.Repetition,
		Started:     time.Now(),
	}
	if ctx.Err() != nil {
		run.Truncated = true
		return run, nil
	}

	outcomes, truncated := r.batch(ctx, opts, records[warmup:], false)
	run.Elapsed = time.Since(run.Started)
	run.Outcomes = outcomes
	run.Truncated = truncated
	return run, nil
}

// batch feeds records to a fixed pool of workers and collects one outcome
// per dispatched record. The truncated flag reports that ctx expired before
// every record could be dispatched; outcomes already in flight are still
// collected before batch returns.
func (r *Runner) batch(ctx context.Context, opts RunOptions, records []prompts.Record, warmup bool) ([]Outcome, bool) {
	jobs := make(chan prompts.Record)
	results := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				results <- r.executor.Do(ctx, rec)
			}
		}()
	}

	truncated := false
	go func() {
		defer close(jobs)
		for _, rec := range records {
			if r.limiter != nil {
				if err := r.limiter.Wait(ctx); err != nil {
					truncated = true
					return
				}
			}
			select {
			case jobs <- rec:
			case <-ctx.Done():
				truncated = true
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]Outcome, 0, len(records))
	for out := range results {
		outcomes = append(outcomes, out)
		o := out
		emit(opts.OnEvent, Event{
			Kind:        EventRequestDone,
			Concurrency: opts.Concurrency,
			Repetition:  opts.Repetition,
			Warmup:      warmup,
			Outcome:     &o,
		})
	}
	return outcomes, truncated
}
