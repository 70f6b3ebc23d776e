// internal/loadgen/sweeper_test.go
package loadgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mwiater/klimax/internal/appconfig"
)

func sweepConfig(levels []int, reps int) *appconfig.Config {
	return &appconfig.Config{
		Endpoint:          "http://bench.local/v1/chat/completions",
		ConcurrencyLevels: levels,
		Repetitions:       reps,
		FailedTokenPolicy: appconfig.TokenPolicyExclude,
	}
}

func TestSweeperRunsLevelsInOrder(t *testing.T) {
	t.Parallel()

	stub := &stubTransport{}
	events := &eventRecorder{}
	sweeper := NewSweeper(SweeperOptions{
		Config:    sweepConfig([]int{2, 4, 1}, 1),
		Transport: stub,
		Prompts:   &stubSource{},
		OnEvent:   events.record,
	})

	result, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Truncated {
		t.Fatalf("unexpected truncation")
	}
	if len(result.Levels) != 3 {
		t.Fatalf("expected 3 level summaries, got %d", len(result.Levels))
	}
	for i, want := range []int{2, 4, 1} {
		if result.Levels[i].Concurrency != want {
			t.Fatalf("level %d concurrency = %d, want %d", i, result.Levels[i].Concurrency, want)
		}
	}

	started := events.byKind(EventLevelStarted)
	if len(started) != 3 {
		t.Fatalf("expected 3 level start events, got %d", len(started))
	}
	for i, want := range []int{2, 4, 1} {
		if started[i].Concurrency != want {
			t.Fatalf("level start %d concurrency = %d, want %d", i, started[i].Concurrency, want)
		}
	}

	if result.CompletedAt.Before(result.StartedAt) {
		t.Fatalf("completion before start: %+v", result)
	}
	if result.EndpointType != "stub" {
		t.Fatalf("unexpected endpoint type: %q", result.EndpointType)
	}
	if got := len(events.byKind(EventSweepDone)); got != 1 {
		t.Fatalf("expected single sweep done event, got %d", got)
	}
}

func TestSweeperPreflightFailureAborts(t *testing.T) {
	t.Parallel()

	stub := &stubTransport{checkErr: errors.New("connection refused")}
	sweeper := NewSweeper(SweeperOptions{
		Config:    sweepConfig([]int{2, 4}, 1),
		Transport: stub,
		Prompts:   &stubSource{},
	})

	if _, err := sweeper.Run(context.Background()); err == nil {
		t.Fatalf("expected preflight failure to abort the sweep")
	}
	if got := stub.totalCalls(); got != 0 {
		t.Fatalf("expected no measured requests after failed preflight, got %d", got)
	}
}

func TestSweeperDeadlineTruncates(t *testing.T) {
	t.Parallel()

	stub := &stubTransport{delay: 30 * time.Millisecond}
	sweeper := NewSweeper(SweeperOptions{
		Config:    sweepConfig([]int{2, 2, 2, 2}, 3),
		Transport: stub,
		Prompts:   &stubSource{},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := sweeper.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !result.Truncated {
		t.Fatalf("expected truncated sweep")
	}
	if len(result.Levels) == 0 || len(result.Levels) >= 4 {
		t.Fatalf("expected partial levels, got %d", len(result.Levels))
	}
}

func TestSweeperSkipsFailedLevel(t *testing.T) {
	t.Parallel()

	source := &stubSource{failBatch: func(call int) error {
		if call == 2 {
			return errors.New("prompt file exhausted")
		}
		return nil
	}}
	events := &eventRecorder{}
	sweeper := NewSweeper(SweeperOptions{
		Config:    sweepConfig([]int{1, 2, 3}, 1),
		Transport: &stubTransport{},
		Prompts:   source,
		OnEvent:   events.record,
	})

	result, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Truncated {
		t.Fatalf("level failure must not truncate the sweep")
	}
	if len(result.Levels) != 2 {
		t.Fatalf("expected 2 level summaries, got %d", len(result.Levels))
	}
	if result.Levels[0].Concurrency != 1 || result.Levels[1].Concurrency != 3 {
		t.Fatalf("unexpected surviving levels: %+v", result.Levels)
	}

	failed := events.byKind(EventLevelFailed)
	if len(failed) != 1 {
		t.Fatalf("expected 1 level failed event, got %d", len(failed))
	}
	if failed[0].Concurrency != 2 || failed[0].Err == nil {
		t.Fatalf("unexpected failure event: %+v", failed[0])
	}
}

func TestSweeperRecordsRunsThroughSink(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	sweeper := NewSweeper(SweeperOptions{
		Config:    sweepConfig([]int{1, 2}, 2),
		Transport: &stubTransport{},
		Prompts:   &stubSource{},
		Sink:      sink,
	})

	if _, err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	recorded := sink.recorded()
	if len(recorded) != 4 {
		t.Fatalf("expected 4 recorded runs, got %d", len(recorded))
	}
	wantLevels := []int{1, 1, 2, 2}
	for i, run := range recorded {
		if run.Concurrency != wantLevels[i] {
			t.Fatalf("run %d concurrency = %d, want %d", i, run.Concurrency, wantLevels[i])
		}
	}
}

func TestSweeperBreakBetweenLevels(t *testing.T) {
	t.Parallel()

	cfg := sweepConfig([]int{1, 2}, 1)
	cfg.BreakSeconds = 1
	events := &eventRecorder{}
	sweeper := NewSweeper(SweeperOptions{
		Config:    cfg,
		Transport: &stubTransport{},
		Prompts:   &stubSource{},
		OnEvent:   events.record,
	})

	start := time.Now()
	if _, err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("expected at least one break interval, elapsed %v", elapsed)
	}
	// A single break: between the two levels but never after the last.
	if got := len(events.byKind(EventBreak)); got != 1 {
		t.Fatalf("expected 1 break event, got %d", got)
	}
}
