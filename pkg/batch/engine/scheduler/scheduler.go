package scheduler

import (
	"context"
	"sync"
	"time"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/relist/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/relist/pkg/batch/core/metrics"
	executor "github.com/tigerroll/relist/pkg/batch/engine/executor"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// Scheduler periodically sweeps for due scheduled batches and dispatches them
// to the executor. Each due batch is claimed atomically before dispatch, so a
// batch fires exactly once even when a manual trigger races the timer.
type Scheduler struct {
	repo         repository.BatchRepository
	executor     *executor.BatchExecutor
	recorder     metrics.MetricRecorder
	pollInterval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	repo repository.BatchRepository,
	exec *executor.BatchExecutor,
	recorder metrics.MetricRecorder,
	pollInterval time.Duration,
) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 60 * time.Second
	}
	return &Scheduler{
		repo:         repo,
		executor:     exec,
		recorder:     recorder,
		pollInterval: pollInterval,
	}
}

// Start launches the polling loop. The first sweep runs immediately so
// batches that became due while the process was down fire without waiting a
// full interval. Calling Start on a started scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		logger.Debugf("Scheduler already started, ignoring Start.")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(loopCtx, done)
	logger.Infof("Scheduler started (poll interval: %s).", s.pollInterval)
}

// Stop halts the polling loop and waits for in-flight executions to finish.
// Dispatched executions are never interrupted, only drained. Calling Stop on
// a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.running.Wait()
	logger.Infof("Scheduler stopped.")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// RecoverInterrupted re-dispatches batches left RUNNING by a previous process
// crash. They were already claimed, so they go straight to the executor, which
// resumes from the first unfinished item. Intended to be called once at
// startup before Start.
func (s *Scheduler) RecoverInterrupted(ctx context.Context) error {
	active, err := s.repo.ListActiveBatches(ctx)
	if err != nil {
		return err
	}
	for _, batch := range active {
		if batch.Status != model.BatchStatusRunning {
			continue
		}
		logger.Infof("Resuming interrupted batch (ID: %s, Name: %s).", batch.ID, batch.Name)
		batchID := batch.ID
		// Stop cancels only the poll loop; a resumed execution runs to its
		// own completion and is drained through running.Wait.
		execCtx := context.WithoutCancel(ctx)
		s.running.Add(1)
		go func() {
			defer s.running.Done()
			if err := s.executor.Execute(execCtx, batchID); err != nil {
				logger.Errorf("Resume of batch (ID: %s) failed: %v", batchID, err)
			}
		}()
	}
	return nil
}

// sweep claims every due scheduled batch and dispatches each to the executor
// in its own goroutine. Claim losses are expected under concurrent triggers
// and are not errors.
func (s *Scheduler) sweep(ctx context.Context) {
	due, err := s.repo.ListDueScheduledBatches(ctx, time.Now())
	if err != nil {
		logger.Errorf("Scheduler sweep failed to list due batches: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	logger.Debugf("Scheduler sweep found %d due batch(es).", len(due))

	for _, batch := range due {
		claimed, err := s.repo.ClaimBatch(ctx, batch.ID)
		if err != nil {
			logger.Errorf("Failed to claim batch (ID: %s): %v", batch.ID, err)
			continue
		}
		s.recorder.RecordClaim(claimed)
		if !claimed {
			logger.Debugf("Batch (ID: %s) was claimed by another trigger, skipping.", batch.ID)
			continue
		}

		batchID := batch.ID
		// Stop cancels only the poll loop; a dispatched execution runs to
		// its own completion and is drained through running.Wait.
		execCtx := context.WithoutCancel(ctx)
		s.running.Add(1)
		go func() {
			defer s.running.Done()
			if err := s.executor.Execute(execCtx, batchID); err != nil {
				logger.Errorf("Scheduled execution of batch (ID: %s) failed: %v", batchID, err)
			}
		}()
	}
}
