package config

import (
	"go.uber.org/fx"

	"github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It also applies the configured log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Relist.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Relist.System.Logging.Level)

	return cfg, nil
}

// Module is an Fx module that provides configuration-related components.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
)
