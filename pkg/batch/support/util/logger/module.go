package logger

import "go.uber.org/fx"

// Module is an Fx module that provides the fx.Logger adapter.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
