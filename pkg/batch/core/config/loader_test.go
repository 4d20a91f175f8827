package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
relist:
  scheduler:
    poll_interval_seconds: 15
  retry:
    max_attempts: 5
    initial_interval: 250
    max_interval: 8000
    retryable_exceptions:
      - ErrPortalBusy
  automation:
    endpoint: https://automation.example.com
    timeout_seconds: 10
  system:
    logging:
      level: DEBUG
  database:
    type: postgres
    host: db.example.com
`

func TestLoadConfig_EmbeddedYAMLOverridesDefaults(t *testing.T) {
	cfg, err := LoadConfig("", EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Relist.Scheduler.PollIntervalSeconds)
	assert.Equal(t, 5, cfg.Relist.Retry.MaxAttempts)
	assert.Equal(t, 250, cfg.Relist.Retry.InitialInterval)
	assert.Equal(t, []string{"ErrPortalBusy"}, cfg.Relist.Retry.RetryableExceptions)
	assert.Equal(t, "https://automation.example.com", cfg.Relist.Automation.Endpoint)
	assert.Equal(t, "DEBUG", cfg.Relist.System.Logging.Level)
	assert.Equal(t, "postgres", cfg.Relist.Database["type"])
}

func TestLoadConfig_DefaultsWithoutEmbeddedYAML(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Relist.Scheduler.PollIntervalSeconds)
	assert.Equal(t, 3, cfg.Relist.Retry.MaxAttempts)
}

func TestLoadConfig_EnvOverridesWin(t *testing.T) {
	t.Setenv("RELIST_LOG_LEVEL", "WARN")
	t.Setenv("RELIST_POLL_INTERVAL_SECONDS", "5")
	t.Setenv("RELIST_AUTOMATION_API_KEY", "from-env")

	cfg, err := LoadConfig("", EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, "WARN", cfg.Relist.System.Logging.Level)
	assert.Equal(t, 5, cfg.Relist.Scheduler.PollIntervalSeconds)
	assert.Equal(t, "from-env", cfg.Relist.Automation.APIKey)
}

func TestLoadConfig_IgnoresMalformedEnvNumbers(t *testing.T) {
	t.Setenv("RELIST_RETRY_MAX_ATTEMPTS", "lots")

	cfg, err := LoadConfig("", EmbeddedConfig(testYAML))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Relist.Retry.MaxAttempts) // YAML value retained
}

func TestLoadConfig_BrokenYAML(t *testing.T) {
	_, err := LoadConfig("", EmbeddedConfig("relist: [not a mapping"))
	assert.Error(t, err)
}
