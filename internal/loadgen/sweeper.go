// internal/loadgen/sweeper.go
package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/prompts"
	"github.com/mwiater/klimax/internal/transport"
)

// Sweeper steps through the configured concurrency levels in order and
// aggregates the full sweep.
type Sweeper struct {
	cfg       *appconfig.Config
	transport transport.Transport
	source    prompts.Source
	sink      OutcomeSink
	onEvent   func(Event)
}

// SweeperOptions configures a sweep. Sink and OnEvent may be nil.
type SweeperOptions struct {
	Config    *appconfig.Config
	Transport transport.Transport
	Prompts   prompts.Source
	Sink      OutcomeSink
	OnEvent   func(Event)
}

// NewSweeper creates a sweeper from its collaborators.
func NewSweeper(opts SweeperOptions) *Sweeper {
	return &Sweeper{
		cfg:       opts.Config,
		transport: opts.Transport,
		source:    opts.Prompts,
		sink:      opts.Sink,
		onEvent:   opts.OnEvent,
	}
}

// Run executes the full sweep. The endpoint is probed once before any load
// is generated; a failed probe aborts the sweep without issuing measured
// requests. A level that cannot complete (prompt exhaustion, sink write
// failure) is reported through the event callback and skipped; later levels
// still run. When a run deadline is configured the sweep stops at the
// deadline and the partial result is marked truncated.
func (s *Sweeper) Run(ctx context.Context) (*SweepResult, error) {
	if err := s.transport.Check(ctx); err != nil {
		return nil, fmt.Errorf("endpoint check failed: %w", err)
	}

	if deadline := s.cfg.RunDeadline(); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	result := &SweepResult{
		StartedAt:      time.Now(),
		Endpoint:       s.cfg.Endpoint,
		EndpointType:   s.endpointType(),
		Model:          s.cfg.Model,
		WarmupRequests: s.cfg.WarmupRequests,
	}
	emit(s.onEvent, Event{Kind: EventSweepStarted, Planned: s.cfg.PlannedRequests()})

	runner := NewRunner(NewExecutor(s.transport), s.cfg.RatePerSecond)
	trial := NewTrial(runner, s.cfg, s.source, s.sink, s.onEvent)

	levels := s.cfg.ConcurrencyLevels
	for i, level := range levels {
		emit(s.onEvent, Event{Kind: EventLevelStarted, Concurrency: level})

		summary, _, err := trial.Run(ctx, level)
		switch {
		case err != nil && ctx.Err() != nil:
			result.Truncated = true
		case err != nil:
			emit(s.onEvent, Event{Kind: EventLevelFailed, Concurrency: level, Err: err})
		default:
			result.Levels = append(result.Levels, summary)
			sv := summary
			emit(s.onEvent, Event{Kind: EventLevelDone, Concurrency: level, Summary: &sv})
		}

		if ctx.Err() != nil {
			result.Truncated = true
			break
		}

		if i < len(levels)-1 {
			s.closeIdle()
			if delay := s.cfg.BreakDelay(); delay > 0 {
				emit(s.onEvent, Event{Kind: EventBreak, Concurrency: level})
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					result.Truncated = true
				}
			}
		}
		if result.Truncated {
			break
		}
	}

	result.CompletedAt = time.Now()
	emit(s.onEvent, Event{Kind: EventSweepDone, Result: result})
	return result, nil
}

func (s *Sweeper) endpointType() string {
	if s.cfg.EndpointType != "" {
		return s.cfg.EndpointType
	}
	return s.transport.Kind()
}

// closeIdle drops pooled connections so each level starts from a cold pool.
func (s *Sweeper) closeIdle() {
	type idleCloser interface{ CloseIdleConnections() }
	if c, ok := s.transport.(idleCloser); ok {
		c.CloseIdleConnections()
	}
}
