// internal/transport/azureml.go
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

type scoreParameters struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type scoreInputData struct {
	InputString []chatMessage   `json:"input_string"`
	Parameters  scoreParameters `json:"parameters"`
}

type scoreRequest struct {
	InputData scoreInputData `json:"input_data"`
}

type scoreResponse struct {
	Output     *string `json:"output"`
	TokenCount struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"token_count"`
}

// AzureML speaks the Azure ML managed online endpoint /score wire format.
type AzureML struct {
	cfg    *appconfig.Config
	client *http.Client
}

// NewAzureML creates a transport for an Azure ML /score endpoint.
func NewAzureML(cfg *appconfig.Config) *AzureML {
	return &AzureML{
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
func (t *AzureML) Kind() string { return KindAzureML }

// CloseIdleConnections drops pooled connections to the endpoint.
func (t *AzureML) CloseIdleConnections() { t.client.CloseIdleConnections() }

// Complete sends one scoring request with the configured sampling parameters.
func (t *AzureML) Complete(ctx context.Context, req Request) (Completion, error) {
	return t.complete(ctx, req.Prompt, t.cfg.MaxTokens)
}

// Check probes the endpoint with a single-token completion.
func (t *AzureML) Check(ctx context.Context) error {
	_, err := t.complete(ctx, "ping", 1)
	return err
}

func (t *AzureML) complete(ctx context.Context, prompt string, maxTokens int) (Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout())
	defer cancel()

	payload := scoreRequest{
		InputData: scoreInputData{
			InputString: []chatMessage{{Role: "user", Content: prompt}},
			Parameters: scoreParameters{
				Temperature: t.cfg.Temperature,
				MaxTokens:   maxTokens,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, &Error{Kind: ErrKindTransport, Message: "azureml: marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Completion{}, &Error{Kind: ErrKindTransport, Message: "azureml: build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.cfg.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.cfg.AuthToken)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Completion{}, requestError(ctx, "azureml", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, requestError(ctx, "azureml", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Completion{}, &Error{
			Kind:    ErrKindEndpoint,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("azureml: endpoint returned %s: %s", resp.Status, util.TruncateRunes(string(raw), maxErrorBodyRunes)),
		}
	}

	var parsed scoreResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Completion{}, &Error{Kind: ErrKindParse, Status: resp.StatusCode, Message: "azureml: decode response", Cause: err}
	}
	if parsed.Output == nil {
		return Completion{}, &Error{Kind: ErrKindParse, Status: resp.StatusCode, Message: "azureml: response contained no output"}
	}

	text := *parsed.Output
	usage := Usage{
		InputTokens:  parsed.TokenCount.PromptTokens,
		OutputTokens: parsed.TokenCount.CompletionTokens,
	}
	if usage.OutputTokens == 0 {
		usage = estimateUsage(prompt, text)
	}
	return Completion{Text: text, StatusCode: resp.StatusCode, Usage: usage}, nil
}
