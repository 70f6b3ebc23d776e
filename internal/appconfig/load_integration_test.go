// internal/appconfig/load_integration_test.go
package appconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultPath(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, "config")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}

	payload := `{
  "endpoint": "http://localhost:9090/score",
  "endpointType": "azureml",
  "concurrencyLevels": [2, 4],
  "repetitions": 1,
  "breakSeconds": 0
}`
	path := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	oldCwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldCwd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Endpoint != "http://localhost:9090/score" {
		t.Fatalf("unexpected endpoint %q", cfg.Endpoint)
	}
	if cfg.EndpointType != EndpointAzureML {
		t.Fatalf("unexpected endpoint type %q", cfg.EndpointType)
	}
	if cfg.BreakSeconds != 0 {
		t.Fatalf("explicit breakSeconds 0 was overridden to %d", cfg.BreakSeconds)
	}
	if cfg.ConfigPath != DefaultConfigPath {
		t.Fatalf("ConfigPath=%q want %q", cfg.ConfigPath, DefaultConfigPath)
	}
}

func TestLoadMissingFileError(t *testing.T) {
	tempDir := t.TempDir()
	oldCwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldCwd) })

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for missing config")
	}
}
