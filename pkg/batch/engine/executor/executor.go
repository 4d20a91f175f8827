package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	automation "github.com/tigerroll/relist/pkg/batch/automation"
	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/relist/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/relist/pkg/batch/core/metrics"
	retry "github.com/tigerroll/relist/pkg/batch/engine/retry"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// ResultExporter receives the final state of a finished batch, e.g. to write a
// result file to object storage. Export failures are logged, never fatal.
type ResultExporter interface {
	Export(ctx context.Context, batch *model.Batch, items []*model.BatchItem) error
}

// BatchExecutor drives one batch through its item pipeline: for each item, the
// modify sub-step and then the re-advertise sub-step, with automatic retries
// per the Policy. Every state transition is persisted before the next external
// call, so a crashed execution resumes from the first unfinished item.
type BatchExecutor struct {
	repo     repository.Repository
	client   automation.Client
	policy   retry.Policy
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
	exporter ResultExporter
}

// NewBatchExecutor creates a new BatchExecutor. exporter may be nil when
// result export is disabled.
func NewBatchExecutor(
	repo repository.Repository,
	client automation.Client,
	policy retry.Policy,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
	exporter ResultExporter,
) *BatchExecutor {
	return &BatchExecutor{
		repo:     repo,
		client:   client,
		policy:   policy,
		recorder: recorder,
		tracer:   tracer,
		exporter: exporter,
	}
}

// Execute runs the batch identified by batchID to a terminal state, or until
// the context is cancelled or a persistence write fails. Executing a batch
// already in a terminal state is a no-op. Item failures never abort the batch;
// only persistence failures and context cancellation do.
func (e *BatchExecutor) Execute(ctx context.Context, batchID string) error {
	const op = "BatchExecutor.Execute"

	batch, err := e.repo.GetBatch(ctx, batchID)
	if err != nil {
		return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to load batch %s", op, batchID), err, false)
	}

	if batch.Status.IsTerminal() {
		logger.Infof("Batch (ID: %s) is already %s, nothing to execute.", batch.ID, batch.Status)
		return nil
	}

	ctx, endSpan := e.tracer.StartBatchSpan(ctx, batch)
	defer endSpan()
	start := time.Now()

	batch.MarkAsRunning()
	if err := e.repo.UpdateBatch(ctx, batch); err != nil {
		return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to persist RUNNING state for batch %s", op, batchID), err, false)
	}

	items, err := e.repo.ListItems(ctx, batchID)
	if err != nil {
		return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to load items for batch %s", op, batchID), err, false)
	}
	logger.Infof("Batch (ID: %s, Name: %s) execution started with %d items.", batch.ID, batch.Name, len(items))

	cancelled := false
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			e.tracer.RecordError(ctx, "executor", err)
			return exception.NewBatchError("executor", fmt.Sprintf("%s: batch %s interrupted", op, batchID), err, false)
		}

		// Cancellation checkpoint: an external Cancel lands between items,
		// never mid sub-step.
		fresh, err := e.repo.GetBatch(ctx, batchID)
		if err != nil {
			return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to refresh batch %s", op, batchID), err, false)
		}
		if fresh.Status == model.BatchStatusCancelled {
			logger.Infof("Batch (ID: %s) was cancelled, stopping before item %s.", batch.ID, item.ID)
			batch = fresh
			cancelled = true
			break
		}
		batch = fresh

		if item.Status.IsTerminal() {
			continue
		}

		if err := e.processItem(ctx, batchID, item, items); err != nil {
			// Only infrastructure errors surface here; an item's business
			// failure is absorbed into the item state.
			return err
		}
	}

	if !cancelled {
		// processItem bumped the batch version with every aggregate write.
		fresh, err := e.repo.GetBatch(ctx, batchID)
		if err != nil {
			return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to refresh batch %s", op, batchID), err, false)
		}
		batch = fresh
	}

	batch.Finalize(items)
	if err := e.repo.UpdateBatch(ctx, batch); err != nil {
		return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to persist final state for batch %s", op, batchID), err, false)
	}

	e.recorder.RecordBatch(batch, time.Since(start))
	logger.Infof("Batch (ID: %s) finished with status %s (completed=%d, failed=%d, total=%d).",
		batch.ID, batch.Status, batch.CompletedCount, batch.FailedCount, batch.TotalCount)

	if !cancelled && e.exporter != nil && batch.Status.IsTerminal() {
		if err := e.exporter.Export(ctx, batch, items); err != nil {
			logger.Warnf("Result export for batch (ID: %s) failed: %v", batch.ID, err)
		}
	}
	return nil
}

// processItem drives one item through its remaining sub-steps, persisting the
// recomputed batch aggregate after each one. A sub-step failure that exhausts
// retries leaves the item FAILED and returns nil; only persistence errors and
// context cancellation propagate.
func (e *BatchExecutor) processItem(ctx context.Context, batchID string, item *model.BatchItem, items []*model.BatchItem) error {
	if item.ModifyStatus == model.StepStatusPending || item.ModifyStatus == model.StepStatusInProgress {
		if err := e.runStep(ctx, item, model.StepModify); err != nil {
			return err
		}
		if err := e.persistCounts(ctx, batchID, items); err != nil {
			return err
		}
	}
	if item.ModifyStatus == model.StepStatusFailed {
		return nil
	}

	if item.ShouldReAdvertise &&
		(item.ReAdvertiseStatus == model.StepStatusPending || item.ReAdvertiseStatus == model.StepStatusInProgress) {
		if err := e.runStep(ctx, item, model.StepReAdvertise); err != nil {
			return err
		}
		if err := e.persistCounts(ctx, batchID, items); err != nil {
			return err
		}
	}
	return nil
}

// persistCounts re-reads the batch and writes the recomputed aggregate. The
// re-read keeps the version check from colliding with an external cancel
// issued while the sub-step ran.
func (e *BatchExecutor) persistCounts(ctx context.Context, batchID string, items []*model.BatchItem) error {
	const op = "BatchExecutor.persistCounts"

	batch, err := e.repo.GetBatch(ctx, batchID)
	if err != nil {
		return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to refresh batch %s", op, batchID), err, false)
	}
	batch.RecalculateCounts(items)
	if invErr := batch.CheckCountInvariant(); invErr != nil {
		logger.Errorf("%v", invErr)
	}
	if err := e.repo.UpdateBatch(ctx, batch); err != nil {
		return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to persist counts for batch %s", op, batchID), err, false)
	}
	return nil
}

// runStep executes one sub-step with automatic retries. A sub-step found
// IN_PROGRESS (a crash mid-call) is failed first and then retried as usual,
// relying on the remote operations being idempotent.
func (e *BatchExecutor) runStep(ctx context.Context, item *model.BatchItem, step string) error {
	const op = "BatchExecutor.runStep"

	if e.stepStatus(item, step) == model.StepStatusInProgress {
		logger.Warnf("BatchItem (ID: %s) found with %s in progress, treating the interrupted attempt as failed.", item.ID, step)
		e.failStep(item, step, fmt.Errorf("attempt interrupted before completion"))
		if err := e.repo.UpdateItem(ctx, item); err != nil {
			return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to persist interrupted %s state for item %s", op, step, item.ID), err, false)
		}
		// The interrupted attempt is retried under the same ceiling as an
		// ordinary failure, so repeated crash cycles cannot push the retry
		// count past the configured maximum.
		if item.RetryCount >= e.policy.GetMaxAttempts() {
			logger.Warnf("BatchItem (ID: %s, OfferID: %s): %s interrupted with no retries left (retry count %d).",
				item.ID, item.OfferID, step, item.RetryCount)
			return nil
		}
		if err := e.resetStep(item, step); err != nil {
			return nil
		}
	}

	for {
		if err := e.startStep(item, step); err != nil {
			logger.Warnf("BatchItem (ID: %s): cannot start %s: %v", item.ID, step, err)
			return nil
		}
		if err := e.repo.UpdateItem(ctx, item); err != nil {
			return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to persist %s start for item %s", op, step, item.ID), err, false)
		}

		stepCtx, endSpan := e.tracer.StartStepSpan(ctx, item, step)
		attemptStart := time.Now()
		callErr := e.callStep(stepCtx, item, step)
		duration := time.Since(attemptStart)
		endSpan()

		if callErr == nil {
			e.completeStep(item, step)
			e.recorder.RecordStep(step, model.StepStatusCompleted, duration)
			if err := e.repo.UpdateItem(ctx, item); err != nil {
				return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to persist %s completion for item %s", op, step, item.ID), err, false)
			}
			return nil
		}

		e.tracer.RecordError(stepCtx, "executor", callErr)
		e.failStep(item, step, callErr)
		e.recorder.RecordStep(step, model.StepStatusFailed, duration)
		if err := e.repo.UpdateItem(ctx, item); err != nil {
			return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to persist %s failure for item %s", op, step, item.ID), err, false)
		}

		if item.RetryCount >= e.policy.GetMaxAttempts() || !e.policy.ShouldRetry(callErr) {
			logger.Warnf("BatchItem (ID: %s, OfferID: %s): %s failed permanently after %d retries: %v",
				item.ID, item.OfferID, step, item.RetryCount, callErr)
			return nil
		}

		if err := e.resetStep(item, step); err != nil {
			logger.Warnf("BatchItem (ID: %s): cannot reset %s for retry: %v", item.ID, step, err)
			return nil
		}
		if err := e.repo.UpdateItem(ctx, item); err != nil {
			return exception.NewBatchError("executor", fmt.Sprintf("%s: failed to persist %s retry reset for item %s", op, step, item.ID), err, false)
		}
		e.recorder.RecordRetry(step)

		backoff := e.policy.GetBackoffInterval(item.RetryCount)
		logger.Debugf("BatchItem (ID: %s): retrying %s (attempt %d) after %s.", item.ID, step, item.RetryCount+1, backoff)
		select {
		case <-ctx.Done():
			return exception.NewBatchError("executor", fmt.Sprintf("%s: interrupted while backing off for item %s", op, item.ID), ctx.Err(), false)
		case <-time.After(backoff):
		}
	}
}

func (e *BatchExecutor) stepStatus(item *model.BatchItem, step string) model.StepStatus {
	if step == model.StepModify {
		return item.ModifyStatus
	}
	return item.ReAdvertiseStatus
}

func (e *BatchExecutor) startStep(item *model.BatchItem, step string) error {
	if step == model.StepModify {
		return item.StartModify()
	}
	return item.StartReAdvertise()
}

func (e *BatchExecutor) completeStep(item *model.BatchItem, step string) {
	if step == model.StepModify {
		item.CompleteModify()
		return
	}
	item.CompleteReAdvertise()
}

func (e *BatchExecutor) failStep(item *model.BatchItem, step string, err error) {
	if step == model.StepModify {
		item.FailModify(err)
		return
	}
	item.FailReAdvertise(err)
}

func (e *BatchExecutor) resetStep(item *model.BatchItem, step string) error {
	if step == model.StepModify {
		return item.ResetModifyForRetry()
	}
	return item.ResetReAdvertiseForRetry()
}

func (e *BatchExecutor) callStep(ctx context.Context, item *model.BatchItem, step string) error {
	if step == model.StepModify {
		return e.client.Modify(ctx, item)
	}
	return e.client.ReAdvertise(ctx, item)
}

// CollectFailures summarizes item-level failures of a finished batch into one
// aggregated error for reporting. It returns nil when no item failed.
func CollectFailures(batch *model.Batch, items []*model.BatchItem) error {
	var result *multierror.Error
	for _, item := range items {
		if item.Status == model.ItemStatusFailed {
			result = multierror.Append(result, fmt.Errorf(
				"item %s (offer %s) failed at %s: %s", item.ID, item.OfferID, item.CurrentStep, item.ErrorMessage))
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = func(errs []error) string {
		return fmt.Sprintf("batch %s: %d of %d items failed", batch.ID, len(errs), batch.TotalCount)
	}
	return result.ErrorOrNil()
}
