package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "DEBUG"

api:
  url: "https://api.example.com"

writable_dir: "` + yamlSafePath(tmpDir) + `"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected log level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.API.URL != "https://api.example.com" {
		t.Errorf("expected API url to be preserved, got %q", cfg.API.URL)
	}
	if cfg.Sync.MaxRetries != 3 {
		t.Errorf("expected default max retries 3, got %d", cfg.Sync.MaxRetries)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := Load(filepath.Join(tmpDir, "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default log level INFO, got %q", cfg.Logging.Level)
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := GetDefaultConfig()
	cfg.API.URL = "https://example.test"
	cfg.Sync.ClockSkew = 10 * time.Minute

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}

	reloaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if reloaded.API.URL != "https://example.test" {
		t.Errorf("expected reloaded API url to round-trip, got %q", reloaded.API.URL)
	}
	if reloaded.Sync.ClockSkew != 10*time.Minute {
		t.Errorf("expected reloaded clock skew to round-trip, got %v", reloaded.Sync.ClockSkew)
	}
}
