// internal/loadgen/executor_test.go
package loadgen

import (
	"context"
	"errors"
	"testing"

	"github.com/mwiater/klimax/internal/prompts"
	"github.com/mwiater/klimax/internal/transport"
)

func TestExecutorDoSuccess(t *testing.T) {
	t.Parallel()

	stub := &stubTransport{}
	executor := NewExecutor(stub)

	out := executor.Do(context.Background(), prompts.Record{ID: "p1", Text: "hello"})
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.PromptID != "p1" {
		t.Fatalf("unexpected prompt id: %q", out.PromptID)
	}
	if out.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", out.StatusCode)
	}
	if out.InputTokens != 10 || out.OutputTokens != 5 {
		t.Fatalf("unexpected tokens: %+v", out)
	}
	if out.TotalTokens() != 15 {
		t.Fatalf("unexpected total tokens: %d", out.TotalTokens())
	}
	if out.End.Before(out.Start) {
		t.Fatalf("end before start: %+v", out)
	}
	if out.Duration < 0 {
		t.Fatalf("negative duration: %v", out.Duration)
	}
}

func TestExecutorDoClassifiedFailure(t *testing.T) {
	t.Parallel()

	stub := &stubTransport{
		failCall: func(int) error {
			return &transport.Error{Kind: transport.ErrKindEndpoint, Status: 503, Message: "stub: endpoint returned 503"}
		},
	}
	executor := NewExecutor(stub)

	out := executor.Do(context.Background(), prompts.Record{ID: "p1", Text: "hello"})
	if out.Success {
		t.Fatalf("expected failure, got %+v", out)
	}
	if out.ErrKind != transport.ErrKindEndpoint {
		t.Fatalf("unexpected kind: %q", out.ErrKind)
	}
	if out.StatusCode != 503 {
		t.Fatalf("unexpected status: %d", out.StatusCode)
	}
	if out.ErrDetail == "" {
		t.Fatalf("expected error detail")
	}
}

func TestExecutorDoUnclassifiedFailure(t *testing.T) {
	t.Parallel()

	stub := &stubTransport{
		failCall: func(int) error { return errors.New("wire snapped") },
	}
	executor := NewExecutor(stub)

	out := executor.Do(context.Background(), prompts.Record{ID: "p1", Text: "hello"})
	if out.Success {
		t.Fatalf("expected failure, got %+v", out)
	}
	if out.ErrKind != transport.ErrKindTransport {
		t.Fatalf("expected transport kind fallback, got %q", out.ErrKind)
	}
}
