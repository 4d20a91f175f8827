package retry

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
)

// Module provides the retry Policy to Fx.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config) Policy {
		return NewExponentialPolicy(cfg.Relist.Retry)
	}),
)
