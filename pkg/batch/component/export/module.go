package export

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
	executor "github.com/tigerroll/relist/pkg/batch/engine/executor"
)

// Module provides the ResultExporter to Fx. When export is disabled a nil
// exporter is provided and the executor skips exporting.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config) (executor.ResultExporter, error) {
		if !cfg.Relist.Export.Enabled {
			return nil, nil
		}
		return NewParquetExporter(cfg.Relist.Export)
	}),
)
