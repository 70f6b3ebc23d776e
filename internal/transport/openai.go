// internal/transport/openai.go
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/util"
)

// maxErrorBodyRunes bounds how much of an error response body is carried
// into error messages and logs.
const maxErrorBodyRunes = 512

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// OpenAI speaks the OpenAI-compatible chat completions wire format.
type OpenAI struct {
	cfg    *appconfig.Config
	client *http.Client
}

// NewOpenAI creates a transport for an OpenAI-compatible chat endpoint.
func NewOpenAI(cfg *appconfig.Config) *OpenAI {
	return &OpenAI{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout(),
			Transport: &http.Transport{
				ForceAttemptHTTP2: false,
			},
		},
	}
}

// Kind reports the wire format name.
func (t *OpenAI) Kind() string { return KindOpenAI }

// CloseIdleConnections drops pooled connections to the endpoint.
func (t *OpenAI) CloseIdleConnections() { t.client.CloseIdleConnections() }

// Complete sends one chat completion request for the configured model.
func (t *OpenAI) Complete(ctx context.Context, req Request) (Completion, error) {
	return t.complete(ctx, req.Prompt, t.cfg.MaxTokens)
}

// Check probes the endpoint with a single-token completion.
func (t *OpenAI) Check(ctx context.Context) error {
	_, err := t.complete(ctx, "ping", 1)
	return err
}

func (t *OpenAI) complete(ctx context.Context, prompt string, maxTokens int) (Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout())
	defer cancel()

	payload := chatRequest{
		Model:       t.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: t.cfg.Temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, &Error{Kind: ErrKindTransport, Message: "openai: marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Completion{}, &Error{Kind: ErrKindTransport, Message: "openai: build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.cfg.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.cfg.AuthToken)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Completion{}, requestError(ctx, "openai", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, requestError(ctx, "openai", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Completion{}, &Error{
			Kind:    ErrKindEndpoint,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("openai: endpoint returned %s: %s", resp.Status, util.TruncateRunes(string(raw), maxErrorBodyRunes)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Completion{}, &Error{Kind: ErrKindParse, Status: resp.StatusCode, Message: "openai: decode response", Cause: err}
	}
	if len(parsed.Choices) == 0 {
		return Completion{}, &Error{Kind: ErrKindParse, Status: resp.StatusCode, Message: "openai: response contained no choices"}
	}

	text := parsed.Choices[0].Message.Content
	usage := Usage{
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}
	if usage.OutputTokens == 0 {
		usage = estimateUsage(prompt, text)
	}
	return Completion{Text: text, StatusCode: resp.StatusCode, Usage: usage}, nil
}
