package executor

import (
	"go.uber.org/fx"

	automation "github.com/tigerroll/relist/pkg/batch/automation"
	repository "github.com/tigerroll/relist/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/relist/pkg/batch/core/metrics"
	retry "github.com/tigerroll/relist/pkg/batch/engine/retry"
)

// ExecutorParams collects the executor's dependencies. The exporter is
// optional; it is absent when result export is disabled.
type ExecutorParams struct {
	fx.In

	Repo     repository.Repository
	Client   automation.Client
	Policy   retry.Policy
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
	Exporter ResultExporter `optional:"true"`
}

// Module provides the BatchExecutor to Fx.
var Module = fx.Options(
	fx.Provide(func(p ExecutorParams) *BatchExecutor {
		return NewBatchExecutor(p.Repo, p.Client, p.Policy, p.Recorder, p.Tracer, p.Exporter)
	}),
)
