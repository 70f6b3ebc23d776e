package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/k0kubun/pp"
	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/util"
)

// --- Configuration ---

// Set the number of times to loop through every payload shape and budget.
const iterationCount = 5

// Set the output filename for the final JSON report.
const outputReportFile = "skunkworks/reports/transport_probe_report.json"

// Set the log file path
const logFilePath = "skunkworks/logs/transport_probe.log"

// Completion counts may drift a few tokens past the requested cap before a
// server truncates; allow that much before calling it a violation.
const budgetSlack = 4

// Pause between batches so probe traffic stays bursty rather than sustained.
const coolDown = 2 * time.Second

// Set your endpoints. The number of endpoints determines the number of
// parallel requests. The configured endpoint is prepended at startup.
var (
	endpoints = []string{
		//"http://localhost:8081/v1/chat/completions",
		//"http://localhost:8082/v1/chat/completions",
	}

	// Set the max_tokens budgets to be probed.
	tokenBudgets = []int{
		8,
		//16,
		32,
		//64,
		128,
	}
)

// Model name and bearer token for the probe payloads, seeded from config.
var (
	probeModel string
	authToken  string
)

// Select the active payload shapes for this run.
type probeMode string

const (
	probeModeChat  probeMode = "chat"
	probeModeScore probeMode = "score"
)

var probeModes = []probeMode{
	probeModeChat,
	probeModeScore,
}

var responseFilePaths = map[probeMode]string{
	probeModeChat:  "skunkworks/responses/chat.json",
	probeModeScore: "skunkworks/responses/score.json",
}

type payloadConfig struct {
	prompt        string
	expectedShape string
}

var payloadConfigs = map[probeMode]payloadConfig{
	probeModeChat: {
		prompt:        "Summarize the purpose of a load test in one sentence.",
		expectedShape: "choices/usage",
	},
	probeModeScore: {
		prompt:        "Summarize the purpose of a load test in one sentence.",
		expectedShape: "output/token_count",
	},
}

// PAYLOAD_TEMPLATE_CHAT is the JSON payload sent to OpenAI-compatible chat
// completion endpoints. The %s is a placeholder for the model name, the %d
// for the max_tokens budget.
const PAYLOAD_TEMPLATE_CHAT = `{
  "model": "%s",
  "messages": [
    {
      "role": "user",
      "content": "Summarize the purpose of a load test in one sentence."
    }
  ],
  "max_tokens": %d,
  "temperature": 0.2
}`

// PAYLOAD_TEMPLATE_SCORE is the JSON payload sent to Azure ML scoring
// endpoints. The %d is a placeholder for the max_tokens budget.
const PAYLOAD_TEMPLATE_SCORE = `{
  "input_data": {
    "input_string": [
      {
        "role": "user",
        "content": "Summarize the purpose of a load test in one sentence."
      }
    ],
    "parameters": {
      "temperature": 0.2,
      "max_tokens": %d
    }
  }
}`

// --- Structs for Parsing ---

// Struct for the chat completion response with correct nesting
type chatProbeResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage tokenAccounting `json:"usage"`
}

// Struct for the Azure ML scoring response shape.
type scoreProbeResponse struct {
	Output     string          `json:"output"`
	TokenCount tokenAccounting `json:"token_count"`
}

// Token counters shared by both response shapes.
type tokenAccounting struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// --- Job/Worker Pool Structs ---

type job struct {
	label  string
	budget int
	mode   probeMode
}

type result struct {
	label       string
	success     bool
	rawResponse json.RawMessage // The raw JSON response body
	mode        probeMode
}

// --- Main Application ---

var successfulResult = color.New(color.FgGreen).SprintFunc()
var failedResult = color.New(color.FgRed).SprintFunc()

func main() {
	loadedCfg, err := appconfig.Load("")
	if err != nil {
		fmt.Printf("failed to load config: %v", err)
	}

	// Populate the probe targets from the loaded config.
	if loadedCfg.Endpoint != "" {
		endpoints = append([]string{loadedCfg.Endpoint}, endpoints...)
	}
	probeModel = loadedCfg.Model
	if probeModel == "" {
		probeModel = "default"
	}
	authToken = loadedCfg.AuthToken

	if len(endpoints) == 0 {
		pp.Println("No endpoints configured. Exiting.")
		os.Exit(1)
	}

	// Ensure log directory exists before opening file
	logDir := getDir(logFilePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Fatalf("Failed to create log directory: %v", err)
		}
	}

	// Use a file for logging as well as stdout
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()

	// Set log output to be multi-writer: stdout and the file
	mw := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(mw)

	// Truncate output files before starting
	log.Println("Truncating output files...")
	// We use "{}" for JSON files as it's the minimal valid content.
	truncateFile(outputReportFile, "{}")
	for _, path := range responseFilePaths {
		truncateFile(path, "{}")
	}

	log.Println("Starting transport probe runner...")
	log.Printf("Token Budgets: %d", len(tokenBudgets))
	log.Printf("Parallel Endpoints (Batch Size): %d", len(endpoints))
	log.Printf("Total Iterations: %d", iterationCount)
	log.Printf("Total Requests to be made: %d", len(tokenBudgets)*iterationCount*len(probeModes))
	log.Println("----------------------------------------")

	// successCounts stores the number of compliant responses per budget.
	successCounts := make(map[probeMode]map[string]int)
	for _, mode := range probeModes {
		successCounts[mode] = make(map[string]int)
		for _, budget := range tokenBudgets {
			successCounts[mode][budgetLabel(budget)] = 0
		}
	}

	numEndpoints := len(endpoints)

	// --- Initial Reachability Check ---
	// Ping every endpoint once before the probe run starts.
	log.Println("--- Initial Reachability Check ---")
	for _, endpoint := range endpoints {
		checkHealth(endpoint)
	}
	log.Println("----------------------------------------")

	// Create response files for streaming writes
	respFiles := make(map[probeMode]*os.File)
	firstEntry := make(map[probeMode]*bool)

	for mode, path := range responseFilePaths {
		file, err := createResponseFile(path)
		if err != nil {
			log.Fatalf("Failed to create response file for %s: %v", mode, err)
		}
		respFiles[mode] = file
		defer file.Close()

		flag := new(bool)
		*flag = true
		firstEntry[mode] = flag

		if _, err := file.WriteString("{\n"); err != nil {
			log.Fatalf("Failed to write to response file for %s: %v", mode, err)
		}
	}

	// Main loop for n iterations.
	log.Printf("Beginning %d probe iterations...", iterationCount)
	for i := 0; i < iterationCount; i++ {
		log.Printf("--- Starting Iteration %d/%d ---", i+1, iterationCount)

		for _, mode := range probeModes {
			log.Printf("===> Running mode: %s", mode)

			// Loop through budgets in batches of numEndpoints
			totalBatches := (len(tokenBudgets) + numEndpoints - 1) / numEndpoints
			for j := 0; j < len(tokenBudgets); j += numEndpoints {
				batchEnd := j + numEndpoints
				if batchEnd > len(tokenBudgets) {
					batchEnd = len(tokenBudgets)
				}
				batchBudgets := tokenBudgets[j:batchEnd]
				numInBatch := len(batchBudgets)

				logline := fmt.Sprintf("[Iter %d | Mode %s] Processing batch %d/%d (Budgets %d-%d)...", i+1, mode, (j/numEndpoints)+1, totalBatches, j+1, batchEnd)
				log.Print(successfulResult(logline))

				// 1. Set up the worker pool channels for this batch.
				jobs := make(chan job, numInBatch)
				results := make(chan result, numInBatch)

				// 2. Start workers (one per endpoint).
				logline = fmt.Sprintf("[Iter %d | Mode %s | Batch %d] Starting %d workers...", i+1, mode, (j/numEndpoints)+1, numEndpoints)
				log.Print(successfulResult(logline))

				for w := 0; w < numEndpoints; w++ {
					go worker(w, endpoints[w], jobs, results)
				}

				// 3. Send all jobs (one per budget) for this batch.
				for _, budget := range batchBudgets {
					jobs <- job{label: budgetLabel(budget), budget: budget, mode: mode}
				}
				close(jobs) // Signal that no more jobs will be sent for this batch.

				// 4. Collect all results for this batch.
				logline = fmt.Sprintf("[Iter %d | Mode %s | Batch %d] Waiting to collect %d results...", i+1, mode, (j/numEndpoints)+1, numInBatch)
				log.Print(successfulResult(logline))

				respFile, respOK := respFiles[mode]
				flag, flagOK := firstEntry[mode]

				for k := 0; k < numInBatch; k++ {
					res := <-results
					if res.success {
						successCounts[mode][res.label]++
					}

					// Stream response to file immediately
					if respOK && flagOK {
						if err := streamResponseToFile(respFile, res.label, res.rawResponse, flag); err != nil {
							log.Printf("ERROR: Failed to stream response for %s (mode %s): %v", res.label, mode, err)
						}
					} else {
						log.Printf("WARNING: Missing response writer for mode %s; skipping stream for %s", mode, res.label)
					}

					logline = fmt.Sprintf("[Iter %d | Mode %s | Batch %d] Collected result %d/%d (Budget: %s, Success: %t)", i+1, mode, (j/numEndpoints)+1, k+1, numInBatch, res.label, res.success)

					if res.success {
						log.Print(successfulResult(logline))
					} else {
						log.Print(failedResult(logline))
					}
				}

				// 5. Cool down *after* the batch is complete.
				logline = fmt.Sprintf("[Iter %d | Mode %s | Batch %d] Batch complete. Cooling down for %s.", i+1, mode, (j/numEndpoints)+1, coolDown)
				log.Print(successfulResult(logline))
				time.Sleep(coolDown)
			}
		}

		logline := fmt.Sprintf("--- Finished Iteration %d/%d ---", i+1, iterationCount)
		log.Print(successfulResult(logline))
		log.Println("----------------------------------------")
	} // End of iteration loop

	// Close the JSON object in response files
	for mode, file := range respFiles {
		if _, err := file.WriteString("\n}\n"); err != nil {
			log.Printf("ERROR: Failed to close JSON in response file for %s: %v", mode, err)
		}
	}

	// 6. Process and display final results.
	log.Println("All iterations complete. Generating final report...")
	finalReport := processResults(successCounts, iterationCount)

	// Print and save the summary report
	printReport(finalReport, iterationCount)
	saveReport(finalReport, outputReportFile)

	log.Println("Script finished.")
}

// --- Worker Function ---

// worker represents a single concurrent goroutine tied to a specific endpoint.
func worker(id int, endpoint string, jobs <-chan job, results chan<- result) {
	// Create a single HTTP client for this worker.
	client := &http.Client{
		Timeout: 60 * time.Second,
	}

	log.Printf("[Worker %d | Endpoint %s] Worker started. Waiting for jobs...", id, endpoint)
	for j := range jobs {
		config, hasConfig := payloadConfigs[j.mode]
		expectedShape := "unknown"
		prompt := ""
		if hasConfig {
			expectedShape = config.expectedShape
			prompt = config.prompt
		} else {
			log.Printf("[Worker %d | Endpoint %s] WARNING: No payload config for mode %s", id, endpoint, j.mode)
		}

		log.Printf("[Worker %d | Endpoint %s] Starting job for %s (mode %s, expected shape: %s)", id, endpoint, j.label, j.mode, expectedShape)
		if prompt != "" {
			log.Printf("[Worker %d | Endpoint %s] User prompt for %s (mode %s): %q", id, endpoint, j.label, j.mode, prompt)
		}

		target, err := targetURL(endpoint, j.mode)
		if err != nil {
			log.Printf("[Worker %d | Endpoint %s] ERROR resolving target for %s (mode %s): %v", id, endpoint, j.label, j.mode, err)
			errJSON := createErrorJSON(fmt.Sprintf("TARGET URL ERROR: %v", err))
			results <- result{label: j.label, success: false, rawResponse: errJSON, mode: j.mode}
			continue
		}

		// Create the specific payload for this budget.
		payload, err := buildPayload(j.mode, j.budget)
		if err != nil {
			log.Printf("[Worker %d | Endpoint %s] ERROR creating payload for %s (mode %s): %v", id, endpoint, j.label, j.mode, err)
			errJSON := createErrorJSON(fmt.Sprintf("PAYLOAD BUILD ERROR: %v", err))
			results <- result{label: j.label, success: false, rawResponse: errJSON, mode: j.mode}
			continue
		}

		// Pretty print payload as JSON text
		fmt.Println(string(payload))

		req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			log.Printf("[Worker %d | Endpoint %s] ERROR building request for %s (mode %s): %v", id, endpoint, j.label, j.mode, err)
			errJSON := createErrorJSON(fmt.Sprintf("HTTP REQUEST ERROR: %v", err))
			results <- result{label: j.label, success: false, rawResponse: errJSON, mode: j.mode}
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		if authToken != "" {
			req.Header.Set("Authorization", "Bearer "+authToken)
		}

		// Make the HTTP POST request.
		log.Printf("[Worker %d | Endpoint %s] Sending POST request for %s (mode %s) to %s...", id, endpoint, j.label, j.mode, target)
		resp, err := client.Do(req)
		if err != nil {
			log.Printf("[Worker %d | Endpoint %s] ERROR during request for %s (mode %s): %v", id, endpoint, j.label, j.mode, err)
			errJSON := createErrorJSON(fmt.Sprintf("HTTP POST ERROR: %v", err))
			results <- result{label: j.label, success: false, rawResponse: errJSON, mode: j.mode}
			continue
		}
		log.Printf("[Worker %d | Endpoint %s] Received response for %s (mode %s, Status: %s).", id, endpoint, j.label, j.mode, resp.Status)

		// Read the response body.
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Printf("[Worker %d | Endpoint %s] ERROR reading body for %s (mode %s): %v", id, endpoint, j.label, j.mode, err)
			errJSON := createErrorJSON(fmt.Sprintf("HTTP BODY READ ERROR: %v", err))
			results <- result{label: j.label, success: false, rawResponse: errJSON, mode: j.mode}
			continue
		}

		// Check for non-200 OK status codes and wrap response
		if resp.StatusCode != http.StatusOK {
			log.Printf("[Worker %d | Endpoint %s] ERROR: Server returned non-200 status (%s) for %s (mode %s).", id, endpoint, resp.Status, j.label, j.mode)
			errJSON := createErrorJSON(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)))
			results <- result{label: j.label, success: false, rawResponse: errJSON, mode: j.mode}
			continue
		}

		log.Printf("[Worker %d | Endpoint %s] Response body read for %s (mode %s, %d bytes).", id, endpoint, j.label, j.mode, len(body))

		// Check if the response meets the success criteria.
		isSuccess := checkSuccess(body, j.label, j.mode, j.budget, id, endpoint)

		log.Printf("[Worker %d | Endpoint %s] Finished job for %s (mode %s, Success: %t)", id, endpoint, j.label, j.mode, isSuccess)
		results <- result{label: j.label, success: isSuccess, rawResponse: body, mode: j.mode}
	}
	log.Printf("[Worker %d | Endpoint %s] No more jobs. Worker shutting down.", id, endpoint)
}

// --- Helper Functions ---

// targetURL resolves the URL a probe mode should post to. Chat probes hit
// the endpoint as configured; score probes reuse its host with the Azure ML
// scoring path.
func targetURL(endpoint string, mode probeMode) (string, error) {
	if mode != probeModeScore {
		return endpoint, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	u.Path = "/score"
	u.RawQuery = ""
	return u.String(), nil
}

// buildPayload creates the JSON payload for a specific token budget.
func buildPayload(mode probeMode, budget int) ([]byte, error) {
	switch mode {
	case probeModeChat:
		return []byte(fmt.Sprintf(PAYLOAD_TEMPLATE_CHAT, probeModel, budget)), nil
	case probeModeScore:
		return []byte(fmt.Sprintf(PAYLOAD_TEMPLATE_SCORE, budget)), nil
	default:
		return nil, fmt.Errorf("unsupported probe mode: %s", mode)
	}
}

// createErrorJSON marshals an error string into a valid json.RawMessage
func createErrorJSON(errMsg string) json.RawMessage {
	errResp := struct {
		Error string `json:"error"`
	}{
		Error: errMsg,
	}
	raw, _ := json.Marshal(errResp)
	return raw
}

// budgetLabel names a token budget in report keys and log lines.
func budgetLabel(budget int) string {
	return fmt.Sprintf("max_tokens=%d", budget)
}

// checkHealth pings the endpoint host's /healthz route. Failures are logged
// but never abort the run; not every deployment exposes the route.
func checkHealth(endpoint string) {
	u, err := url.Parse(endpoint)
	if err != nil {
		log.Printf("Health check skipped for %s: %v", endpoint, err)
		return
	}
	u.Path = "/healthz"
	u.RawQuery = ""

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(u.String())
	if err != nil {
		log.Print(failedResult(fmt.Sprintf("Health check failed for %s: %v", endpoint, err)))
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	log.Print(successfulResult(fmt.Sprintf("Health check for %s: %s %s", endpoint, resp.Status, strings.TrimSpace(string(body)))))
}

// checkSuccess parses the response for the probe's wire shape and verifies
// the completion stayed within its token budget.
func checkSuccess(body []byte, label string, mode probeMode, budget int, workerID int, endpoint string) bool {
	switch mode {
	case probeModeScore:
		var resp scoreProbeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			log.Printf("[Worker %d | Endpoint %s] Failed to unmarshal JSON for %s (mode %s). Body: %s", workerID, endpoint, label, mode, util.TruncateRunes(string(body), 400))
			return false
		}
		if strings.TrimSpace(resp.Output) == "" {
			log.Printf("[Worker %d | Endpoint %s] FAILURE for %s (mode %s): empty output field.", workerID, endpoint, label, mode)
			return false
		}
		return checkBudget(resp.TokenCount, label, mode, budget, workerID, endpoint)
	default:
		var resp chatProbeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			log.Printf("[Worker %d | Endpoint %s] Failed to unmarshal JSON for %s (mode %s). Body: %s", workerID, endpoint, label, mode, util.TruncateRunes(string(body), 400))
			return false
		}
		if len(resp.Choices) == 0 {
			log.Printf("[Worker %d | Endpoint %s] FAILURE for %s (mode %s): no choices in response.", workerID, endpoint, label, mode)
			return false
		}
		if strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			log.Printf("[Worker %d | Endpoint %s] FAILURE for %s (mode %s): empty message content.", workerID, endpoint, label, mode)
			return false
		}
		return checkBudget(resp.Usage, label, mode, budget, workerID, endpoint)
	}
}

// checkBudget applies the token accounting criteria. Endpoints that omit
// usage still pass on text alone; the sweep client estimates those counts.
func checkBudget(counts tokenAccounting, label string, mode probeMode, budget int, workerID int, endpoint string) bool {
	if counts.CompletionTokens == 0 {
		log.Printf("[Worker %d | Endpoint %s] Usage omitted for %s (mode %s); counting text-only success.", workerID, endpoint, label, mode)
		return true
	}
	if counts.CompletionTokens > budget+budgetSlack {
		log.Printf("[Worker %d | Endpoint %s] BUDGET VIOLATION for %s (mode %s): %d completion tokens against a budget of %d.", workerID, endpoint, label, mode, counts.CompletionTokens, budget)
		return false
	}
	log.Printf("[Worker %d | Endpoint %s] SUCCESS for %s (mode %s): %d/%d completion tokens, %d prompt tokens.", workerID, endpoint, label, mode, counts.CompletionTokens, budget, counts.PromptTokens)
	return true
}

// processResults calculates percentages and builds the final report map.
func processResults(counts map[probeMode]map[string]int, totalIterations int) map[probeMode]map[string]interface{} {
	log.Println("Processing final results...")
	report := make(map[probeMode]map[string]interface{})
	for mode, budgetCounts := range counts {
		modeReport := make(map[string]interface{})
		for label, count := range budgetCounts {
			var percent float64
			if totalIterations > 0 {
				percent = (float64(count) / float64(totalIterations)) * 100.0
			}
			modeReport[label] = map[string]interface{}{
				"success_count":   count,
				"percent_success": percent,
				"total_runs":      totalIterations,
			}
		}
		report[mode] = modeReport
	}
	log.Println("Final results processed.")
	return report
}

// printReport prints the final formatted results to the console.
func printReport(report map[probeMode]map[string]interface{}, totalIterations int) {
	fmt.Println("\n--- FINAL REPORT ---")
	fmt.Printf("Based on %d probe(s) per budget.\n\n", totalIterations)
	for mode, budgets := range report {
		fmt.Printf("Mode: %s\n", mode)
		for label, raw := range budgets {
			stats := raw.(map[string]interface{})
			count := stats["success_count"].(int)
			percent := stats["percent_success"].(float64)

			fmt.Printf("  %s: %d (%.2f%% success)\n", label, count, percent)
		}
		fmt.Println()
	}
	fmt.Println("--------------------")
}

// saveReport saves the final summary report map to a JSON file.
func saveReport(report map[probeMode]map[string]interface{}, filename string) {
	log.Println("Marshalling final report to JSON...")
	fileData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal final report to JSON: %v", err)
	}

	log.Printf("Writing final report to %s...", filename)
	if err := util.WriteFile(filename, fileData); err != nil {
		log.Fatalf("Failed to write final report to %s: %v", filename, err)
	}

	log.Printf("Successfully saved report to %s", filename)
}

// createResponseFile creates and opens the response file for streaming writes
func createResponseFile(filename string) (*os.File, error) {
	dir := getDir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %v", err)
		}
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}

	return file, nil
}

// streamResponseToFile writes a single response to the file immediately
func streamResponseToFile(file *os.File, label string, response json.RawMessage, firstEntry *bool) error {
	// Add comma if not the first entry
	if !*firstEntry {
		if _, err := file.WriteString(",\n"); err != nil {
			return err
		}
	}
	*firstEntry = false

	// Write the budget label as key
	keyJSON, err := json.Marshal(label)
	if err != nil {
		return err
	}

	if _, err := file.WriteString(fmt.Sprintf("  %s: ", string(keyJSON))); err != nil {
		return err
	}

	// Write the response (already in JSON format)
	if _, err := file.Write(response); err != nil {
		return err
	}

	return nil
}

// truncateFile writes placeholder content to a file, creating its directory.
func truncateFile(filename string, content string) {
	if err := util.WriteFile(filename, []byte(content)); err != nil {
		log.Fatalf("Failed to truncate %s: %v", filename, err)
	}
}

// getDir extracts the directory path from a full file path.
func getDir(path string) string {
	if i := strings.LastIndex(path, "/"); i != -1 {
		return path[:i]
	}
	return "."
}
