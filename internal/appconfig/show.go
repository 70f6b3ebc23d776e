// internal/appconfig/show.go
package appconfig

import (
	"fmt"
	"io"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg *Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	if cfg == nil {
		fallback := Defaults()
		cfg = &fallback
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Endpoint:             %s\n", cfg.Endpoint)
	fmt.Fprintf(out, "  Endpoint Type:        %s\n", displayOrAuto(cfg.EndpointType))
	fmt.Fprintf(out, "  Model:                %s\n", cfg.Model)
	fmt.Fprintf(out, "  Auth Token Set:       %v\n", cfg.AuthToken != "")
	fmt.Fprintf(out, "  Concurrency Levels:   %v\n", cfg.ConcurrencyLevels)
	fmt.Fprintf(out, "  Requests Per Level:   %s\n", requestsDisplay(cfg.RequestsPerLevel))
	fmt.Fprintf(out, "  Repetitions:          %d\n", cfg.Repetitions)
	fmt.Fprintf(out, "  Warmup Requests:      %d\n", cfg.WarmupRequests)
	fmt.Fprintf(out, "  Max Tokens:           %d\n", cfg.MaxTokens)
	fmt.Fprintf(out, "  Temperature:          %.2f\n", cfg.Temperature)
	fmt.Fprintf(out, "  Request Timeout:      %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Run Deadline:         %s\n", deadlineDisplay(cfg))
	fmt.Fprintf(out, "  Break Between Levels: %s\n", cfg.BreakDelay())
	fmt.Fprintf(out, "  Rate Ceiling:         %s\n", rateDisplay(cfg.RatePerSecond))
	fmt.Fprintf(out, "  Failed Token Policy:  %s\n", cfg.FailedTokenPolicy)
	fmt.Fprintf(out, "  Prompt Mode:          %s\n", cfg.Prompts.Mode)
	if cfg.Prompts.Mode == PromptModeFile {
		fmt.Fprintf(out, "  Prompt File:          %s\n", cfg.Prompts.File)
		fmt.Fprintf(out, "  Prompt Cycling:       %v\n", cfg.Prompts.Cycle)
	} else {
		fmt.Fprintf(out, "  Prompt Target Tokens: %d\n", cfg.Prompts.TargetTokens)
	}
	fmt.Fprintf(out, "  Output Dir:           %s\n", cfg.OutputDirPath())
	fmt.Fprintf(out, "  HTML Report:          %v\n", cfg.HTMLReport)
	fmt.Fprintf(out, "  Log File:             %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Debug:                %v\n", cfg.Debug)
}

func displayOrAuto(kind string) string {
	if kind == "" {
		return "auto-detect"
	}
	return kind
}

func requestsDisplay(n int) string {
	if n <= 0 {
		return "match concurrency"
	}
	return fmt.Sprintf("%d", n)
}

func deadlineDisplay(cfg *Config) string {
	if cfg.RunDeadline() == 0 {
		return "none"
	}
	return cfg.RunDeadline().String()
}

func rateDisplay(rate float64) string {
	if rate <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%.2f req/s", rate)
}
