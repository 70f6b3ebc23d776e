// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout is the default per-request timeout.
	defaultRequestTimeout = 120 * time.Second
	// defaultLogFile is the fallback log destination.
	defaultLogFile = "klimax.log"
	// defaultOutputDir is the fallback root for sweep artifacts.
	defaultOutputDir = "klimaxData"
)

// Endpoint request formats understood by the transports.
const (
	EndpointOpenAI  = "openai"
	EndpointAzureML = "azureml"
)

// Policies for folding failed requests into token-throughput windows.
const (
	TokenPolicyExclude = "exclude"
	TokenPolicyZero    = "zero"
)

// Prompt source modes.
const (
	PromptModeGenerate = "generate"
	PromptModeFile     = "file"
)

// Config represents the top-level application configuration.
type Config struct {
	Endpoint           string        `json:"endpoint"`
	EndpointType       string        `json:"endpointType,omitempty"`
	AuthToken          string        `json:"authToken,omitempty"`
	Model              string        `json:"model,omitempty"`
	ConcurrencyLevels  []int         `json:"concurrencyLevels"`
	RequestsPerLevel   int           `json:"requestsPerLevel,omitempty"`
	Repetitions        int           `json:"repetitions"`
	WarmupRequests     int           `json:"warmupRequests"`
	MaxTokens          int           `json:"maxTokens"`
	Temperature        float64       `json:"temperature"`
	TimeoutSeconds     int           `json:"timeoutSeconds,omitempty"`
	RunDeadlineSeconds int           `json:"runDeadlineSeconds,omitempty"`
	BreakSeconds       int           `json:"breakSeconds"`
	RatePerSecond      float64       `json:"ratePerSecond,omitempty"`
	FailedTokenPolicy  string        `json:"failedTokenPolicy"`
	Prompts            PromptsConfig `json:"prompts"`
	OutputDir          string        `json:"outputDir,omitempty"`
	HTMLReport         bool          `json:"htmlReport"`
	LogFile            string        `json:"logFile,omitempty"`
	Debug              bool          `json:"debug"`
	ConfigPath         string        `json:"-"`
}

// PromptsConfig controls the prompt source feeding the sweep.
type PromptsConfig struct {
	Mode         string `json:"mode"`
	File         string `json:"file,omitempty"`
	TargetTokens int    `json:"targetTokens"`
	Cycle        bool   `json:"cycle"`
}

// Defaults returns a Config populated with the documented default values.
// Loading merges file contents over this baseline, so omitted keys keep
// their defaults while explicit zeroes survive.
func Defaults() Config {
	return Config{
		ConcurrencyLevels: []int{2, 4, 8, 16, 32},
		Repetitions:       3,
		WarmupRequests:    5,
		MaxTokens:         64,
		Temperature:       0.7,
		TimeoutSeconds:    int(defaultRequestTimeout.Seconds()),
		BreakSeconds:      5,
		FailedTokenPolicy: TokenPolicyExclude,
		Prompts: PromptsConfig{
			Mode:         PromptModeGenerate,
			TargetTokens: 500,
			Cycle:        true,
		},
		OutputDir:  defaultOutputDir,
		HTMLReport: true,
	}
}

// RequestTimeout returns the per-request timeout, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RunDeadline returns the overall sweep deadline, or zero when unbounded.
func (c Config) RunDeadline() time.Duration {
	if c.RunDeadlineSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RunDeadlineSeconds) * time.Second
}

// BreakDelay returns the pause taken between concurrency levels.
func (c Config) BreakDelay() time.Duration {
	if c.BreakSeconds <= 0 {
		return 0
	}
	return time.Duration(c.BreakSeconds) * time.Second
}

// RequestsFor returns the measured request budget for one repetition at the
// given concurrency level. An unset budget matches the level, so every
// worker issues exactly one measured request.
func (c Config) RequestsFor(level int) int {
	if c.RequestsPerLevel <= 0 {
		return level
	}
	return c.RequestsPerLevel
}

// PlannedRequests returns the total number of requests a full sweep will
// issue, warm-up included, across all levels and repetitions.
func (c Config) PlannedRequests() int {
	total := 0
	for _, level := range c.ConcurrencyLevels {
		perRep := c.WarmupRequests + c.RequestsFor(level)
		total += perRep * c.Repetitions
	}
	return total
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return defaultLogFile
}

// OutputDirPath returns the artifact root directory, applying a default if not set.
func (c Config) OutputDirPath() string {
	if dir := strings.TrimSpace(c.OutputDir); dir != "" {
		return dir
	}
	return defaultOutputDir
}

// Validate checks the configuration for conditions that make a sweep
// impossible. It layers the embedded JSON schema's structural rules with
// cross-field checks the schema cannot express, and returns the first
// problem found.
func (c Config) Validate() error {
	if err := validateSchema(c); err != nil {
		return err
	}

	parsed, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL %q: %w", c.Endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("endpoint URL %q must use http or https", c.Endpoint)
	}

	if c.Prompts.Mode == PromptModeFile && strings.TrimSpace(c.Prompts.File) == "" {
		return errors.New("prompts.file is required when prompts.mode is \"file\"")
	}

	return nil
}

// Load reads the application configuration from the specified path.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("no configuration file found at %q", path)
		}
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}

	config.ConfigPath = path
	return config, nil
}

// loadFromPath is a helper function that loads the configuration from a specific file path.
func loadFromPath(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	config := Defaults()
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}
