// servers/mockllm/main.go
//
// mockllm is a stand-in completion endpoint for exercising klimax without a
// real model. It speaks both wire formats the benchmark understands, adds
// configurable latency and jitter, and can inject failures on a fixed cadence
// so the error-handling path stays honest.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"
)

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

type tokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   tokenUsage   `json:"usage"`
}

type scoreParameters struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type scoreRequest struct {
	InputData struct {
		InputString []chatMessage   `json:"input_string"`
		Parameters  scoreParameters `json:"parameters"`
	} `json:"input_data"`
}

type scoreResponse struct {
	Output     string     `json:"output"`
	TokenCount tokenUsage `json:"token_count"`
}

type errResp struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Server holds the mock endpoint state. The counter feeds the failure
// cadence and is shared across both completion routes.
type Server struct {
	mu       sync.Mutex
	cfg      *Config
	requests int
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	s := &Server{cfg: cfg}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("mockllm config: host=%s port=%d latency=%dms jitter=%dms completion_tokens=%d", cfg.Host, cfg.Port, cfg.BaseLatencyMS, cfg.JitterMS, cfg.CompletionTokens)
	if cfg.FailEvery > 0 {
		log.Printf("mockllm failure injection: every %d requests -> HTTP %d", cfg.FailEvery, cfg.FailStatus)
	}
	log.Printf("listening on %s", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /v1/chat/completions", s.handleChat)
	mux.HandleFunc("POST /score", s.handleScore)
	return mux
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req, 1<<20 /* 1 MiB */); err != nil {
		log.Printf("chat decode error: %v", err)
		writeJSON(w, http.StatusBadRequest, errResp{OK: false, Error: "invalid JSON: " + err.Error()})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errResp{OK: false, Error: "messages is required"})
		return
	}

	s.simulateLatency()
	if s.shouldFail() {
		writeJSON(w, s.cfg.FailStatus, errResp{OK: false, Error: "injected failure"})
		return
	}

	prompt := req.Messages[len(req.Messages)-1].Content
	reply := s.completionText(req.MaxTokens)

	resp := chatResponse{
		Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: reply}}},
	}
	if !s.cfg.OmitUsage {
		resp.Usage = tokenUsage{
			PromptTokens:     len(strings.Fields(prompt)),
			CompletionTokens: len(strings.Fields(reply)),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(w, r, &req, 1<<20 /* 1 MiB */); err != nil {
		log.Printf("score decode error: %v", err)
		writeJSON(w, http.StatusBadRequest, errResp{OK: false, Error: "invalid JSON: " + err.Error()})
		return
	}
	if len(req.InputData.InputString) == 0 {
		writeJSON(w, http.StatusBadRequest, errResp{OK: false, Error: "input_data.input_string is required"})
		return
	}

	s.simulateLatency()
	if s.shouldFail() {
		writeJSON(w, s.cfg.FailStatus, errResp{OK: false, Error: "injected failure"})
		return
	}

	prompt := req.InputData.InputString[len(req.InputData.InputString)-1].Content
	reply := s.completionText(req.InputData.Parameters.MaxTokens)

	resp := scoreResponse{
		Output: reply,
	}
	if !s.cfg.OmitUsage {
		resp.TokenCount = tokenUsage{
			PromptTokens:     len(strings.Fields(prompt)),
			CompletionTokens: len(strings.Fields(reply)),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// completionWords is cycled to build replies; one word stands in for one token.
var completionWords = strings.Fields("the mock model answers with a steady stream of filler tokens for load testing")

// completionText builds a reply of min(maxTokens, configured completion_tokens)
// words so the caller's token accounting has something real to count.
func (s *Server) completionText(maxTokens int) string {
	n := s.cfg.CompletionTokens
	if maxTokens > 0 && maxTokens < n {
		n = maxTokens
	}
	if n <= 0 {
		n = 1
	}

	words := make([]string, n)
	for i := 0; i < n; i++ {
		words[i] = completionWords[i%len(completionWords)]
	}
	return strings.Join(words, " ")
}

// shouldFail advances the shared request counter and reports whether this
// request lands on the failure cadence.
func (s *Server) shouldFail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	return s.cfg.FailEvery > 0 && s.requests%s.cfg.FailEvery == 0
}

func (s *Server) simulateLatency() {
	delay := time.Duration(s.cfg.BaseLatencyMS) * time.Millisecond
	if s.cfg.JitterMS > 0 {
		delay += time.Duration(rand.Int63n(int64(s.cfg.JitterMS)+1)) * time.Millisecond
	}
	if delay > 0 {
		time.Sleep(delay)
	}
}

// Config tunes the mock endpoint.
type Config struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	BaseLatencyMS    int    `yaml:"base_latency_ms"`
	JitterMS         int    `yaml:"jitter_ms"`
	CompletionTokens int    `yaml:"completion_tokens"`
	OmitUsage        bool   `yaml:"omit_usage"`
	FailEvery        int    `yaml:"fail_every"`
	FailStatus       int    `yaml:"fail_status"`
}

var (
	configOnce sync.Once
	configVal  *Config
	configErr  error
)

func loadConfig() (*Config, error) {
	configOnce.Do(func() {
		path := filepath.Join("servers", "mockllm", "mockllm.yml")
		data, err := os.ReadFile(path)
		if err != nil {
			configErr = err
			return
		}

		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			configErr = err
			return
		}

		if cfg.Port <= 0 {
			cfg.Port = 8081
		}
		if cfg.CompletionTokens <= 0 {
			cfg.CompletionTokens = 48
		}
		if cfg.FailStatus <= 0 {
			cfg.FailStatus = http.StatusInternalServerError
		}
		if cfg.BaseLatencyMS < 0 {
			cfg.BaseLatencyMS = 0
		}
		if cfg.JitterMS < 0 {
			cfg.JitterMS = 0
		}

		configVal = &cfg
	})

	return configVal, configErr
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
