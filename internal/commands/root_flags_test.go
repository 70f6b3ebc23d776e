// internal/commands/root_flags_test.go
package klimax

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/logging"
	"github.com/spf13/viper"
)

func resetFlag(cmdFlag string) {
	flag := rootCmd.PersistentFlags().Lookup(cmdFlag)
	if flag == nil {
		return
	}
	_ = flag.Value.Set(flag.DefValue)
	flag.Changed = false
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func pointViperAt(t *testing.T, configPath string) {
	t.Helper()
	prevCfgFile := cfgFile
	cfgFile = configPath
	viper.SetConfigFile(configPath)
	t.Cleanup(func() {
		cfgFile = prevCfgFile
		viper.SetConfigFile(prevCfgFile)
	})
	t.Cleanup(func() { _ = logging.Close() })
}

func TestPersistentPreRunEUsesFlagValues(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "klimax.log")
	configPath := writeTempConfig(t, "{}")
	pointViperAt(t, configPath)

	for _, name := range []string{"endpoint", "debug", "htmlReport", "promptCycle", "maxTokens", "ratePerSecond", "promptMode", "promptFile", "logFile"} {
		resetFlag(name)
	}
	_ = rootCmd.PersistentFlags().Set("endpoint", "http://bench.local/v1/chat/completions")
	_ = rootCmd.PersistentFlags().Set("debug", "true")
	_ = rootCmd.PersistentFlags().Set("maxTokens", "128")
	_ = rootCmd.PersistentFlags().Set("ratePerSecond", "2.5")
	_ = rootCmd.PersistentFlags().Set("promptMode", "file")
	_ = rootCmd.PersistentFlags().Set("promptFile", "prompts.txt")
	_ = rootCmd.PersistentFlags().Set("logFile", logPath)

	if err := rootCmd.PersistentPreRunE(rootCmd, []string{}); err != nil {
		t.Fatalf("PersistentPreRunE error: %v", err)
	}

	if currentConfig == nil || currentConfig.ConfigPath != configPath {
		t.Fatalf("expected config loaded with path %s", configPath)
	}
	if currentConfig.Endpoint != "http://bench.local/v1/chat/completions" {
		t.Fatalf("expected endpoint from flag, got %s", currentConfig.Endpoint)
	}
	if !currentConfig.Debug {
		t.Fatalf("expected debug flag to flow into config: %+v", currentConfig)
	}
	if currentConfig.MaxTokens != 128 {
		t.Fatalf("expected maxTokens 128, got %d", currentConfig.MaxTokens)
	}
	if currentConfig.RatePerSecond != 2.5 {
		t.Fatalf("expected ratePerSecond 2.5, got %v", currentConfig.RatePerSecond)
	}
	if currentConfig.Prompts.Mode != appconfig.PromptModeFile || currentConfig.Prompts.File != "prompts.txt" {
		t.Fatalf("expected prompt flags to reach the nested prompts block: %+v", currentConfig.Prompts)
	}

	// Untouched keys keep their documented defaults.
	if currentConfig.Repetitions != 3 || currentConfig.WarmupRequests != 5 {
		t.Fatalf("expected default repetitions/warmup, got %d/%d", currentConfig.Repetitions, currentConfig.WarmupRequests)
	}
	if !currentConfig.Prompts.Cycle {
		t.Fatalf("expected prompt cycling to default on")
	}
	if currentConfig.FailedTokenPolicy != appconfig.TokenPolicyExclude {
		t.Fatalf("expected default failedTokenPolicy, got %s", currentConfig.FailedTokenPolicy)
	}
}

func TestPersistentPreRunEConfigFileWinsOverUnchangedFlags(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "klimax.log")
	configPath := writeTempConfig(t, `{
  "endpoint": "http://10.0.0.8:9000/score",
  "concurrencyLevels": [1, 2, 4],
  "repetitions": 2,
  "warmupRequests": 0,
  "htmlReport": false,
  "prompts": {"mode": "generate", "targetTokens": 128, "cycle": false}
}`)
	pointViperAt(t, configPath)

	for _, name := range []string{"endpoint", "debug", "htmlReport", "promptCycle", "maxTokens", "ratePerSecond", "promptMode", "promptFile", "repetitions", "warmupRequests", "promptTargetTokens", "logFile"} {
		resetFlag(name)
	}
	_ = rootCmd.PersistentFlags().Set("logFile", logPath)

	if err := rootCmd.PersistentPreRunE(rootCmd, []string{}); err != nil {
		t.Fatalf("PersistentPreRunE error: %v", err)
	}

	if currentConfig.Endpoint != "http://10.0.0.8:9000/score" {
		t.Fatalf("expected endpoint from config file, got %s", currentConfig.Endpoint)
	}
	if got := currentConfig.ConcurrencyLevels; len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 4 {
		t.Fatalf("expected levels [1 2 4] from config file, got %v", got)
	}
	if currentConfig.Repetitions != 2 {
		t.Fatalf("expected repetitions 2 from config file, got %d", currentConfig.Repetitions)
	}
	if currentConfig.WarmupRequests != 0 {
		t.Fatalf("expected explicit zero warmup to survive, got %d", currentConfig.WarmupRequests)
	}
	if currentConfig.HTMLReport {
		t.Fatalf("expected htmlReport disabled by config file")
	}
	if currentConfig.Prompts.TargetTokens != 128 || currentConfig.Prompts.Cycle {
		t.Fatalf("expected nested prompts from config file, got %+v", currentConfig.Prompts)
	}

	// Keys absent from the file keep their defaults.
	if currentConfig.MaxTokens != 64 || currentConfig.BreakSeconds != 5 {
		t.Fatalf("expected defaults for absent keys, got maxTokens=%d breakSeconds=%d", currentConfig.MaxTokens, currentConfig.BreakSeconds)
	}
}

func TestShowConfigCommandOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "klimax.log")
	configPath := writeTempConfig(t, "{}")
	pointViperAt(t, configPath)

	for _, name := range []string{"endpoint", "debug", "htmlReport", "promptCycle", "maxTokens", "ratePerSecond", "promptMode", "promptFile", "logFile"} {
		resetFlag(name)
	}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"--debug", "--logFile", logPath, "show", "config"})
	t.Cleanup(func() { rootCmd.SetArgs([]string{}) })
	t.Cleanup(func() { resetFlag("debug"); resetFlag("logFile") })
	_, err := rootCmd.ExecuteC()
	if err != nil {
		t.Fatalf("ExecuteC error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Config file: "+configPath) {
		t.Fatalf("expected config file path in output, got %s", out)
	}
	if !strings.Contains(out, "Debug:                true") {
		t.Fatalf("expected debug in output, got %s", out)
	}
	if !strings.Contains(out, "Concurrency Levels:   [2 4 8 16 32]") {
		t.Fatalf("expected default levels in output, got %s", out)
	}
}
