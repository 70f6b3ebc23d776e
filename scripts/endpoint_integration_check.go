// scripts/endpoint_integration_check.go
//
// Standalone probe for a completion endpoint. Run it before scheduling a long
// sweep to confirm the endpoint answers, parses, and tolerates the sampling
// parameters a sweep will send:
//
//	go run ./scripts -config config/config.json
//	go run ./scripts -url http://localhost:8081/v1/chat/completions
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/transport"
	"github.com/mwiater/klimax/internal/transportfactory"
	"github.com/mwiater/klimax/internal/util"
)

func main() {
	configPath := flag.String("config", appconfig.DefaultConfigPath, "Path to config JSON")
	endpointURL := flag.String("url", "", "Override endpoint URL")
	endpointType := flag.String("endpoint-type", "", "Override endpoint type (openai or azureml)")
	modelName := flag.String("model", "", "Override model name")
	authToken := flag.String("token", "", "Override bearer token")
	timeout := flag.Duration("timeout", 30*time.Second, "HTTP timeout")
	flag.Parse()

	cfg, err := resolveTarget(*configPath, *endpointURL, *endpointType, *modelName, *authToken)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg.TimeoutSeconds = int(timeout.Seconds())

	tr, err := transportfactory.New(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "transport error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Target endpoint: %s\n", cfg.Endpoint)
	fmt.Printf("Wire format: %s\n\n", tr.Kind())

	client := &http.Client{Timeout: *timeout}

	if err := checkHealth(client, cfg.Endpoint); err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
	}

	if err := probeCompletion(tr); err != nil {
		fmt.Fprintf(os.Stderr, "completion probe failed: %v\n", err)
		os.Exit(1)
	}

	if err := probeSamplingParams(client, cfg, tr.Kind()); err != nil {
		fmt.Fprintf(os.Stderr, "sampling param probe failed: %v\n", err)
	}
}

func resolveTarget(configPath, overrideURL, overrideType, overrideModel, overrideToken string) (appconfig.Config, error) {
	if overrideURL != "" {
		cfg := appconfig.Defaults()
		cfg.Endpoint = overrideURL
		cfg.EndpointType = overrideType
		cfg.Model = overrideModel
		cfg.AuthToken = overrideToken
		return cfg, nil
	}

	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return appconfig.Config{}, err
	}
	if overrideType != "" {
		cfg.EndpointType = overrideType
	}
	if overrideModel != "" {
		cfg.Model = overrideModel
	}
	if overrideToken != "" {
		cfg.AuthToken = overrideToken
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return appconfig.Config{}, fmt.Errorf("no endpoint configured in %s", configPath)
	}
	return cfg, nil
}

// checkHealth probes <scheme>://<host>/healthz. Real deployments often lack
// the route, so a failure here is reported but never fatal.
func checkHealth(client *http.Client, endpoint string) error {
	fmt.Println("== /healthz ==")
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	healthURL := fmt.Sprintf("%s://%s/healthz", parsed.Scheme, parsed.Host)

	resp, err := client.Get(healthURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	fmt.Printf("Status: %s\n", resp.Status)
	fmt.Printf("Body: %s\n\n", util.TruncateRunes(strings.TrimSpace(string(body)), 200))
	return nil
}

func probeCompletion(tr transport.Transport) error {
	fmt.Println("== completion probe ==")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	completion, err := tr.Complete(ctx, transport.Request{
		PromptID: "probe-1",
		Prompt:   "Reply with one short sentence.",
	})
	if err != nil {
		return err
	}

	fmt.Printf("Status: %d\n", completion.StatusCode)
	fmt.Printf("Latency: %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Tokens: input=%d output=%d estimated=%v\n",
		completion.Usage.InputTokens, completion.Usage.OutputTokens, completion.Usage.Estimated)
	fmt.Printf("Text: %s\n\n", util.TruncateRunes(strings.TrimSpace(completion.Text), 120))
	return nil
}

// probeSamplingParams posts raw payloads over the detected wire format to see
// which sampling parameter combinations the endpoint accepts.
func probeSamplingParams(client *http.Client, cfg appconfig.Config, kind string) error {
	fmt.Println("== sampling param probe ==")
	type paramCase struct {
		maxTokens   int
		temperature float64
	}
	cases := []paramCase{
		{maxTokens: 1, temperature: 0},
		{maxTokens: 8, temperature: 0},
		{maxTokens: 8, temperature: 0.7},
		{maxTokens: 32, temperature: 0.7},
	}

	for _, tc := range cases {
		payload := rawPayload(kind, cfg.Model, tc.maxTokens, tc.temperature)
		start := time.Now()
		status, body, err := postJSON(client, cfg.Endpoint, cfg.AuthToken, payload)
		if err != nil {
			fmt.Printf("max_tokens=%d temperature=%.1f: error=%v\n", tc.maxTokens, tc.temperature, err)
			continue
		}
		accepted := status >= 200 && status < 300
		msg := util.TruncateRunes(strings.TrimSpace(string(body)), 200)
		fmt.Printf("max_tokens=%d temperature=%.1f: status=%d accepted=%v latency=%s body=%s\n",
			tc.maxTokens, tc.temperature, status, accepted, time.Since(start).Round(time.Millisecond), msg)
	}
	fmt.Println()
	return nil
}

func rawPayload(kind, model string, maxTokens int, temperature float64) map[string]any {
	message := map[string]string{"role": "user", "content": "ping"}
	if kind == appconfig.EndpointAzureML {
		return map[string]any{
			"input_data": map[string]any{
				"input_string": []map[string]string{message},
				"parameters": map[string]any{
					"temperature": temperature,
					"max_tokens":  maxTokens,
				},
			},
		}
	}
	return map[string]any{
		"model":       model,
		"messages":    []map[string]string{message},
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
}

func postJSON(client *http.Client, url, token string, payload map[string]any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
