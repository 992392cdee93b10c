package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_API(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.API.URL != "https://api.lockbook.net" {
		t.Errorf("Expected default API url, got %q", cfg.API.URL)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("Expected default API timeout 30s, got %v", cfg.API.Timeout)
	}
}

func TestApplyDefaults_Sync(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Sync.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.Sync.MaxRetries)
	}
	if cfg.Sync.RetryBackoff != time.Second {
		t.Errorf("Expected default retry backoff 1s, got %v", cfg.Sync.RetryBackoff)
	}
	if cfg.Sync.ClockSkew != 5*time.Minute {
		t.Errorf("Expected default clock skew 5m, got %v", cfg.Sync.ClockSkew)
	}
}

func TestApplyDefaults_WritableDir(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.WritableDir == "" {
		t.Error("Expected a default writable dir to be set")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/lockbook.log",
		},
		API: APIConfig{
			URL:     "https://custom.example.com",
			Timeout: 5 * time.Second,
		},
		WritableDir: "/home/user/.lockbook",
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.API.URL != "https://custom.example.com" {
		t.Errorf("Expected explicit API url to be preserved, got %q", cfg.API.URL)
	}
	if cfg.WritableDir != "/home/user/.lockbook" {
		t.Errorf("Expected explicit writable dir to be preserved, got %q", cfg.WritableDir)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level == "" {
		t.Error("Default config missing logging level")
	}
	if cfg.API.URL == "" {
		t.Error("Default config missing API url")
	}
	if cfg.WritableDir == "" {
		t.Error("Default config missing writable dir")
	}
}
