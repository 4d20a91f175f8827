package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
	repository "github.com/tigerroll/relist/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/relist/pkg/batch/core/metrics"
	executor "github.com/tigerroll/relist/pkg/batch/engine/executor"
)

// Module provides the Scheduler to Fx and binds its lifetime to the
// application: interrupted batches are resumed and the polling loop started on
// OnStart, and the loop drained on OnStop.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config, repo repository.Repository, exec *executor.BatchExecutor, recorder metrics.MetricRecorder) *Scheduler {
		interval := time.Duration(cfg.Relist.Scheduler.PollIntervalSeconds) * time.Second
		return NewScheduler(repo, exec, recorder, interval)
	}),
	fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
		loopCtx, cancelLoop := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := s.RecoverInterrupted(loopCtx); err != nil {
					return err
				}
				s.Start(loopCtx)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				cancelLoop()
				s.Stop()
				return nil
			},
		})
	}),
)
