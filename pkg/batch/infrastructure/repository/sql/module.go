package sql

import (
	"go.uber.org/fx"

	repository "github.com/tigerroll/relist/pkg/batch/core/domain/repository"
)

// Module provides the SQL-backed Repository to Fx.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewRepository,
		fx.As(new(repository.Repository)),
	)),
)
