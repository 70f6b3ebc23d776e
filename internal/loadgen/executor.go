// internal/loadgen/executor.go
package loadgen

import (
	"context"
	"errors"
	"time"

	"github.com/mwiater/klimax/internal/prompts"
	"github.com/mwiater/klimax/internal/transport"
)

// Executor issues single measured requests through a transport.
type Executor struct {
	transport transport.Transport
}

// NewExecutor creates an executor bound to one transport.
func NewExecutor(tr transport.Transport) *Executor {
	return &Executor{transport: tr}
}

// Do sends one request and measures it. It never returns an error: failures
// are folded into the outcome with a classified kind, and a request already
// in flight when ctx expires is recorded as its classified failure.
func (e *Executor) Do(ctx context.Context, rec prompts.Record) Outcome {
	start := time.Now()
	completion, err := e.transport.Complete(ctx, transport.Request{PromptID: rec.ID, Prompt: rec.Text})
	end := time.Now()

	out := Outcome{
		PromptID: rec.ID,
		Start:    start,
		End:      end,
		Duration: end.Sub(start),
	}
	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) {
			out.ErrKind = terr.Kind
			out.StatusCode = terr.Status
		} else {
			out.ErrKind = transport.ErrKindTransport
		}
		out.ErrDetail = err.Error()
		return out
	}

	out.Success = true
	out.StatusCode = completion.StatusCode
	out.InputTokens = completion.Usage.InputTokens
	out.OutputTokens = completion.Usage.OutputTokens
	out.TokensEstimated = completion.Usage.Estimated
	return out
}
