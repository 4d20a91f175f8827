package inmemory

import (
	"go.uber.org/fx"

	repository "github.com/tigerroll/relist/pkg/batch/core/domain/repository"
)

// Module provides the in-memory Repository to Fx, for ephemeral runs.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewRepository,
		fx.As(new(repository.Repository)),
	)),
)
