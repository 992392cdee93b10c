package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Lockbook Configuration File
#
# Environment variables of the form LB_<SECTION>_<KEY> override any value
# set here (e.g. LB_API_URL).

logging:
  level: "%s"
  format: "%s"
  output: "%s"

api:
  url: "%s"
  timeout: %s

writable_dir: "%s"

sync:
  max_retries: %d
  retry_backoff: %s
  clock_skew: %s
`

// InitConfig writes a commented default config file to the default config
// path, failing unless force is set and a file is already there.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a commented default config file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := GetDefaultConfig()
	content := fmt.Sprintf(configTemplate,
		cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output,
		cfg.API.URL, cfg.API.Timeout,
		cfg.WritableDir,
		cfg.Sync.MaxRetries, cfg.Sync.RetryBackoff, cfg.Sync.ClockSkew,
	)

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
