package metrics

import (
	"go.uber.org/fx"
)

// Module is an Fx module that provides metrics-related fallbacks.
// A concrete implementation (e.g., the prometheus recorder) is provided by the
// infrastructure layer; these no-ops remain as defaults.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewNoOpTracer,
		fx.As(new(Tracer)),
	)),
)
