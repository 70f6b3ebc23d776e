// internal/loadgen/types.go
// Package loadgen drives concurrency-controlled load against a completion
// endpoint and derives throughput metrics from the observed outcomes.
package loadgen

import (
	"time"

	"github.com/mwiater/klimax/internal/transport"
)

// Outcome records a single completed request, successful or not.
type Outcome struct {
	PromptID        string
	Success         bool
	StatusCode      int
	Start           time.Time
	End             time.Time
	Duration        time.Duration
	InputTokens     int
	OutputTokens    int
	TokensEstimated bool
	ErrKind         transport.ErrorKind
	ErrDetail       string
}

// TotalTokens returns the combined input and output token count.
func (o Outcome) TotalTokens() int {
	return o.InputTokens + o.OutputTokens
}

// RunMetrics holds the derived metrics for one repetition at one level.
type RunMetrics struct {
	Requests                int            `json:"requests"`
	Successes               int            `json:"successes"`
	Failures                int            `json:"failures"`
	SuccessRate             float64        `json:"success_rate"`
	MeanResponseTime        float64        `json:"mean_response_time"`
	Throughput              float64        `json:"throughput"`
	OutputTokenThroughput   float64        `json:"system_output_token_throughput"`
	CombinedTokenThroughput float64        `json:"system_combined_token_throughput"`
	TotalOutputTokens       int            `json:"total_tokens_generated"`
	TotalInputTokens        int            `json:"total_tokens_input"`
	TotalTokens             int            `json:"total_all_tokens"`
	WindowSeconds           float64        `json:"test_duration"`
	Truncated               bool           `json:"truncated,omitempty"`
	ErrorCounts             map[string]int `json:"error_counts,omitempty"`
}

// LevelRun is the raw material of one repetition: every outcome plus the
// wall-clock span of the batch.
type LevelRun struct {
	Concurrency int
	Repetition  int
	Started     time.Time
	Elapsed     time.Duration
	Truncated   bool
	Outcomes    []Outcome
	Metrics     RunMetrics
}

// MetricSummary is a mean and sample standard deviation over repetitions.
type MetricSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdev"`
}

// LevelSummary aggregates the repetitions run at one concurrency level.
type LevelSummary struct {
	Concurrency             int           `json:"concurrency"`
	Requests                int           `json:"requests"`
	Repetitions             int           `json:"repetitions"`
	ResponseTime            MetricSummary `json:"response_time"`
	Throughput              MetricSummary `json:"throughput"`
	SuccessRate             MetricSummary `json:"success_rate"`
	OutputTokenThroughput   MetricSummary `json:"system_output_token_throughput"`
	CombinedTokenThroughput MetricSummary `json:"system_combined_token_throughput"`
	Truncated               bool          `json:"truncated,omitempty"`
	Runs                    []RunMetrics  `json:"runs"`
}

// SweepResult is the complete record of one sweep across all levels.
type SweepResult struct {
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    time.Time      `json:"completed_at"`
	Endpoint       string         `json:"endpoint"`
	EndpointType   string         `json:"endpoint_type"`
	Model          string         `json:"model,omitempty"`
	WarmupRequests int            `json:"warmup_requests"`
	Levels         []LevelSummary `json:"levels"`
	Truncated      bool           `json:"truncated,omitempty"`
}

// OutcomeSink receives each finished repetition so callers can persist raw
// outcomes incrementally instead of holding a whole sweep in memory.
type OutcomeSink interface {
	RecordRun(run LevelRun) error
}
