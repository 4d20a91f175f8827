package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
	"github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

const moduleName = "config"

// LoadConfig loads configuration from the embedded YAML and environment
// variables. It is expected to be called only once during application startup.
//
// Precedence, lowest first: defaults, embedded YAML, RELIST_* env vars.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	if len(embeddedConfig) > 0 {
		if err := yaml.Unmarshal(embeddedConfig, cfg); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides overrides selected configuration values from RELIST_*
// environment variables. Only operational knobs are exposed this way.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELIST_LOG_LEVEL"); v != "" {
		cfg.Relist.System.Logging.Level = v
	}
	if v := os.Getenv("RELIST_POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Relist.Scheduler.PollIntervalSeconds = n
		}
	}
	if v := os.Getenv("RELIST_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Relist.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("RELIST_RETRY_INITIAL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Relist.Retry.InitialInterval = n
		}
	}
	if v := os.Getenv("RELIST_RETRY_MAX_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Relist.Retry.MaxInterval = n
		}
	}
	if v := os.Getenv("RELIST_AUTOMATION_ENDPOINT"); v != "" {
		cfg.Relist.Automation.Endpoint = v
	}
	if v := os.Getenv("RELIST_AUTOMATION_API_KEY"); v != "" {
		cfg.Relist.Automation.APIKey = v
	}
	if v := os.Getenv("RELIST_METRICS_LISTEN_ADDR"); v != "" {
		cfg.Relist.Metrics.ListenAddr = v
	}
}
