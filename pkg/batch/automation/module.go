package automation

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
)

// Module provides the automation Client to Fx.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		func(cfg *config.Config) *HTTPClient {
			return NewHTTPClient(cfg.Relist.Automation)
		},
		fx.As(new(Client)),
	)),
)
