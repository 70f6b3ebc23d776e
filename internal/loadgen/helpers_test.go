// internal/loadgen/helpers_test.go
package loadgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mwiater/klimax/internal/prompts"
	"github.com/mwiater/klimax/internal/transport"
)

// stubTransport is an in-process transport that tracks call concurrency and
// fails selected calls.
type stubTransport struct {
	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	delay       time.Duration
	failCall    func(call int) error
	checkErr    error
}

func (s *stubTransport) Complete(ctx context.Context, req transport.Request) (transport.Completion, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return transport.Completion{}, &transport.Error{Kind: transport.ErrKindTimeout, Message: "stub: request timed out", Cause: ctx.Err()}
			}
			return transport.Completion{}, &transport.Error{Kind: transport.ErrKindTransport, Message: "stub: request canceled", Cause: ctx.Err()}
		}
	}
	if s.failCall != nil {
		if err := s.failCall(call); err != nil {
			return transport.Completion{}, err
		}
	}
	return transport.Completion{
		Text:       "stub completion body",
		StatusCode: 200,
		Usage:      transport.Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func (s *stubTransport) Check(ctx context.Context) error { return s.checkErr }

func (s *stubTransport) Kind() string { return "stub" }

func (s *stubTransport) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubTransport) peakInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// stubSource hands out synthetic prompt records and remembers batch sizes.
type stubSource struct {
	mu        sync.Mutex
	batches   []int
	err       error
	failBatch func(call int) error
}

func (s *stubSource) Batch(ctx context.Context, n int) ([]prompts.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	s.batches = append(s.batches, n)
	call := len(s.batches)
	s.mu.Unlock()

	if s.failBatch != nil {
		if err := s.failBatch(call); err != nil {
			return nil, err
		}
	}

	records := make([]prompts.Record, n)
	for i := range records {
		records[i] = prompts.Record{
			ID:           fmt.Sprintf("b%d-p%d", call, i),
			Text:         "synthetic benchmark prompt",
			TargetTokens: 3,
		}
	}
	return records, nil
}

func (s *stubSource) batchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.batches...)
}

// captureSink collects every recorded run.
type captureSink struct {
	mu   sync.Mutex
	runs []LevelRun
	err  error
}

func (c *captureSink) RecordRun(run LevelRun) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, run)
	return nil
}

func (c *captureSink) recorded() []LevelRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LevelRun(nil), c.runs...)
}

// eventRecorder accumulates events emitted during a run.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventRecorder) record(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventRecorder) byKind(kind EventKind) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Event
	for _, ev := range e.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
