// internal/transport/transport.go
// Package transport defines the pluggable request transports that speak the
// supported completion wire formats. Transports issue exactly one endpoint
// call per Complete invocation and surface failures as classified errors
// rather than panics or retries.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Transport kinds understood by the factory.
const (
	KindOpenAI  = "openai"
	KindAzureML = "azureml"
)

// ErrorKind classifies why a request failed.
type ErrorKind string

const (
	// ErrKindTimeout marks a request that exceeded its deadline.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindTransport marks connection, DNS, or TLS failures.
	ErrKindTransport ErrorKind = "transport_error"
	// ErrKindEndpoint marks a non-success response from the target.
	ErrKindEndpoint ErrorKind = "endpoint_error"
	// ErrKindParse marks a malformed or unexpected response body.
	ErrKindParse ErrorKind = "parse_error"
)

// Request carries a single prompt to the endpoint. Model, sampling
// parameters, and credentials are transport construction concerns.
type Request struct {
	PromptID string
	Prompt   string
}

// Usage reports the token accounting for one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
	// Estimated is set when the endpoint reported no usage block and the
	// counts were derived from whitespace word counts instead.
	Estimated bool
}

// Completion is a successful endpoint response.
type Completion struct {
	Text       string
	StatusCode int
	Usage      Usage
}

// Transport issues completion requests against one configured endpoint.
type Transport interface {
	// Complete sends one request and returns the parsed completion. Failures
	// are returned as *Error with a populated kind.
	Complete(ctx context.Context, req Request) (Completion, error)
	// Check probes the endpoint with a minimal completion, returning an
	// error when the endpoint cannot serve requests.
	Check(ctx context.Context) error
	// Kind names the wire format the transport speaks.
	Kind() string
}

// Error is a classified request failure.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// DetectKind infers the wire format from the endpoint URL. Azure ML managed
// online endpoints expose a /score route; everything else is assumed to be
// OpenAI-compatible.
func DetectKind(endpointURL string) string {
	if strings.Contains(endpointURL, "/score") {
		return KindAzureML
	}
	return KindOpenAI
}

// requestError classifies a client-level failure where no response arrived.
func requestError(ctx context.Context, prefix string, err error) *Error {
	if isTimeout(ctx, err) {
		return &Error{Kind: ErrKindTimeout, Message: prefix + ": request timed out", Cause: err}
	}
	return &Error{Kind: ErrKindTransport, Message: prefix + ": request failed", Cause: err}
}

// isTimeout reports whether err represents an elapsed deadline. The HTTP
// client reports its own timeout through net.Error rather than the context
// sentinel, so both forms are checked.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// estimateUsage approximates token counts by whitespace word count for
// endpoints that omit usage reporting.
func estimateUsage(prompt, response string) Usage {
	return Usage{
		InputTokens:  len(strings.Fields(prompt)),
		OutputTokens: len(strings.Fields(response)),
		Estimated:    true,
	}
}
