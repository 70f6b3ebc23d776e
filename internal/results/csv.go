// internal/results/csv.go
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mwiater/klimax/internal/loadgen"
)

// requestColumns is the per-request CSV header.
var requestColumns = []string{
	"timestamp", "concurrency", "success", "status_code", "response_time",
	"tokens_generated", "tokens_input", "total_tokens",
	"tokens_per_second", "total_tokens_per_second", "test_duration",
	"repetition", "endpoint_type", "prompt_id", "error",
}

// summaryColumns is the per-level summary CSV header.
var summaryColumns = []string{
	"concurrency", "requests", "repetitions",
	"mean_response_time", "stdev_response_time",
	"mean_throughput", "stdev_throughput",
	"mean_success_rate", "stdev_success_rate",
	"mean_system_output_token_throughput", "stdev_system_output_token_throughput",
	"mean_system_combined_token_throughput", "stdev_system_combined_token_throughput",
}

// CSVWriter appends one row per request as repetitions seal. It implements
// loadgen.OutcomeSink so a sweep streams rows to disk instead of holding
// every outcome in memory.
type CSVWriter struct {
	mu           sync.Mutex
	file         *os.File
	writer       *csv.Writer
	endpointType string
}

// NewCSVWriter creates the per-request CSV at path and writes the header row.
func NewCSVWriter(path, endpointType string) (*CSVWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating result file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(requestColumns); err != nil {
		file.Close()
		return nil, fmt.Errorf("error writing CSV header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("error writing CSV header: %w", err)
	}

	return &CSVWriter{file: file, writer: writer, endpointType: endpointType}, nil
}

// RecordRun writes one row per outcome in the repetition and flushes, so
// completed rows survive an interrupted sweep.
func (c *CSVWriter) RecordRun(run loadgen.LevelRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	testDuration := formatSeconds(run.Elapsed.Seconds())
	for _, outcome := range run.Outcomes {
		if err := c.writer.Write(c.requestRow(outcome, run, testDuration)); err != nil {
			return fmt.Errorf("error writing CSV row: %w", err)
		}
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("error writing CSV rows: %w", err)
	}

	return nil
}

// Close flushes buffered rows and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	flushErr := c.writer.Error()
	closeErr := c.file.Close()
	if flushErr != nil {
		return fmt.Errorf("error flushing CSV rows: %w", flushErr)
	}
	return closeErr
}

// requestRow turns one outcome into its CSV row. Failed requests leave the
// token and rate cells empty and record the error kind instead; a missing
// status code stays an empty cell.
func (c *CSVWriter) requestRow(o loadgen.Outcome, run loadgen.LevelRun, testDuration string) []string {
	statusCode := ""
	if o.StatusCode != 0 {
		statusCode = strconv.Itoa(o.StatusCode)
	}

	var tokensGenerated, tokensInput, totalTokens string
	var tokensPerSecond, totalTokensPerSecond string
	var errKind string
	if o.Success {
		tokensGenerated = strconv.Itoa(o.OutputTokens)
		tokensInput = strconv.Itoa(o.InputTokens)
		totalTokens = strconv.Itoa(o.TotalTokens())
		tokensPerSecond = formatRate(o.OutputTokens, o.Duration)
		totalTokensPerSecond = formatRate(o.TotalTokens(), o.Duration)
	} else {
		errKind = string(o.ErrKind)
	}

	return []string{
		o.End.UTC().Format(time.RFC3339Nano),
		strconv.Itoa(run.Concurrency),
		strconv.FormatBool(o.Success),
		statusCode,
		formatSeconds(o.Duration.Seconds()),
		tokensGenerated,
		tokensInput,
		totalTokens,
		tokensPerSecond,
		totalTokensPerSecond,
		testDuration,
		strconv.Itoa(run.Repetition),
		c.endpointType,
		o.PromptID,
		errKind,
	}
}

// WriteSummaryCSV writes one aggregated row per concurrency level.
func WriteSummaryCSV(path string, result loadgen.SweepResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating summary file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(summaryColumns); err != nil {
		return fmt.Errorf("error writing summary header: %w", err)
	}

	for _, level := range result.Levels {
		row := []string{
			strconv.Itoa(level.Concurrency),
			strconv.Itoa(level.Requests),
			strconv.Itoa(level.Repetitions),
			formatSeconds(level.ResponseTime.Mean),
			formatSeconds(level.ResponseTime.StdDev),
			formatSeconds(level.Throughput.Mean),
			formatSeconds(level.Throughput.StdDev),
			formatSeconds(level.SuccessRate.Mean),
			formatSeconds(level.SuccessRate.StdDev),
			formatSeconds(level.OutputTokenThroughput.Mean),
			formatSeconds(level.OutputTokenThroughput.StdDev),
			formatSeconds(level.CombinedTokenThroughput.Mean),
			formatSeconds(level.CombinedTokenThroughput.StdDev),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("error writing summary row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("error writing summary rows: %w", err)
	}

	return nil
}

// formatSeconds renders a float cell with four decimal places.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// formatRate renders tokens over a duration, or zero when the duration is
// not positive.
func formatRate(tokens int, d time.Duration) string {
	seconds := d.Seconds()
	if seconds <= 0 {
		return formatSeconds(0)
	}
	return formatSeconds(float64(tokens) / seconds)
}
