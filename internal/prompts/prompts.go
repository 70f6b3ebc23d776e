// internal/prompts/prompts.go
package prompts

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Record is a single immutable prompt: the text sent to the endpoint, a
// unique identifier correlating requests to results, and the whitespace
// token length the text was built to.
type Record struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	TargetTokens int    `json:"target_tokens"`
}

// Source produces batches of prompt records. Every call returns fresh
// records (new identifiers), so repeated batches never replay an earlier
// request verbatim against the endpoint.
type Source interface {
	Batch(ctx context.Context, n int) ([]Record, error)
}

// fillerWords seeds generated prompt bodies. The exact wording is
// irrelevant to the endpoint; only the token count matters.
var fillerWords = strings.Fields(
	"Explain in detail how large language models are trained, covering data " +
		"collection, tokenization, distributed optimization, checkpointing, " +
		"evaluation, and the tradeoffs each stage introduces for serving latency.")

// Generator synthesizes unique prompts around a configured whitespace token
// length. Each prompt is prefixed with a fresh UUID so identical batches are
// never issued twice.
type Generator struct {
	targetTokens int
}

// NewGenerator returns a Generator targeting the given whitespace token
// count per prompt. Non-positive targets are raised to one token.
func NewGenerator(targetTokens int) *Generator {
	if targetTokens < 1 {
		targetTokens = 1
	}
	return &Generator{targetTokens: targetTokens}
}

// Batch generates n fresh records.
func (g *Generator) Batch(ctx context.Context, n int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body := fillerText(g.targetTokens - 1)
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.NewString()
		text := id
		if body != "" {
			text = id + " " + body
		}
		records = append(records, Record{ID: id, Text: text, TargetTokens: g.targetTokens})
	}
	return records, nil
}

// fillerText builds a body of exactly the requested whitespace token count.
func fillerText(words int) string {
	if words <= 0 {
		return ""
	}
	parts := make([]string, words)
	for i := range parts {
		parts[i] = fillerWords[i%len(fillerWords)]
	}
	return strings.Join(parts, " ")
}

// FilePool serves prompts from a newline-delimited file. Each batch draws
// the next pending lines and prefixes every one with a fresh UUID; when the
// file is exhausted the pool either cycles back to the first line or fails
// the batch, depending on the configured policy.
type FilePool struct {
	mu      sync.Mutex
	records []string
	cycle   bool
	next    int
}

// NewFilePool loads the prompt file at path. Blank lines are skipped; a file
// with no usable lines is an error.
func NewFilePool(path string, cycle bool) (*FilePool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompts: read pool file: %w", err)
	}
	var records []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		records = append(records, line)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("prompts: pool file %s contains no prompts", path)
	}
	return &FilePool{records: records, cycle: cycle}, nil
}

// Len reports the number of distinct prompt lines in the pool.
func (p *FilePool) Len() int {
	return len(p.records)
}

// Batch returns n records, consuming pool lines in order.
func (p *FilePool) Batch(ctx context.Context, n int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		if p.next >= len(p.records) {
			if !p.cycle {
				return nil, fmt.Errorf("prompts: pool exhausted after %d prompts (cycling disabled)", len(p.records))
			}
			p.next = 0
		}
		line := p.records[p.next]
		p.next++
		id := uuid.NewString()
		text := id + " " + line
		records = append(records, Record{ID: id, Text: text, TargetTokens: len(strings.Fields(text))})
	}
	return records, nil
}
