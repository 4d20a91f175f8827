package usecase

import (
	"go.uber.org/fx"
)

// Module provides the BatchService to Fx.
var Module = fx.Options(
	fx.Provide(NewBatchService),
)
