package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/relist/pkg/batch/core/domain/repository"
	executor "github.com/tigerroll/relist/pkg/batch/engine/executor"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// batchService is the default BatchService implementation.
type batchService struct {
	repo     repository.Repository
	executor *executor.BatchExecutor
}

// NewBatchService creates a new BatchService.
func NewBatchService(repo repository.Repository, exec *executor.BatchExecutor) BatchService {
	return &batchService{repo: repo, executor: exec}
}

func (s *batchService) CreateBatch(ctx context.Context, name string, specs []ItemSpec, scheduledAt *time.Time) (*model.Batch, error) {
	const op = "BatchService.CreateBatch"

	if strings.TrimSpace(name) == "" {
		return nil, exception.NewBatchError("usecase", fmt.Sprintf("%s: batch name must not be empty", op), nil, false)
	}
	if scheduledAt != nil && scheduledAt.Before(time.Now()) {
		logger.Debugf("Batch %q scheduled in the past (%s), it will fire on the next sweep.", name, scheduledAt)
	}

	batch := model.NewBatch(name, scheduledAt)
	items := make([]*model.BatchItem, 0, len(specs))
	for _, spec := range specs {
		if strings.TrimSpace(spec.OfferID) == "" {
			return nil, exception.NewBatchError("usecase", fmt.Sprintf("%s: item offer ID must not be empty", op), nil, false)
		}
		item := model.NewBatchItem(batch.ID, spec.OfferID, spec.ShouldReAdvertise)
		item.ListingTitle = spec.ListingTitle
		item.ListingAddress = spec.ListingAddress
		item.ModifiedPrice = spec.ModifiedPrice
		item.ModifiedRent = spec.ModifiedRent
		item.ModifiedFloorExposure = spec.ModifiedFloorExposure
		items = append(items, item)
	}
	batch.TotalCount = len(items)

	if err := s.repo.SaveBatch(ctx, batch, items); err != nil {
		return nil, exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to save batch %q", op, name), err, false)
	}
	logger.Infof("Created batch (ID: %s, Name: %s, Status: %s) with %d items.", batch.ID, batch.Name, batch.Status, len(items))
	return batch, nil
}

func (s *batchService) ExecuteNow(ctx context.Context, batchID string) error {
	const op = "BatchService.ExecuteNow"

	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to load batch %s", op, batchID), err, false)
	}

	// A scheduled batch races the timer trigger; the claim decides the winner.
	if batch.Status == model.BatchStatusScheduled {
		claimed, err := s.repo.ClaimBatch(ctx, batchID)
		if err != nil {
			return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to claim batch %s", op, batchID), err, false)
		}
		if !claimed {
			return exception.NewBatchError("usecase",
				fmt.Sprintf("%s: batch %s was already claimed by another trigger", op, batchID), nil, false)
		}
	}

	return s.executor.Execute(ctx, batchID)
}

func (s *batchService) Cancel(ctx context.Context, batchID string) error {
	const op = "BatchService.Cancel"

	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to load batch %s", op, batchID), err, false)
	}
	if !batch.Status.IsCancellable() {
		return exception.NewBatchError("usecase",
			fmt.Sprintf("%s: batch %s is %s and cannot be cancelled", op, batchID, batch.Status), nil, false)
	}
	if err := batch.MarkAsCancelled(); err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to cancel batch %s", op, batchID), err, false)
	}
	if err := s.repo.UpdateBatch(ctx, batch); err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to persist cancellation of batch %s", op, batchID), err, false)
	}
	logger.Infof("Batch (ID: %s) cancelled; a running execution stops at its next checkpoint.", batchID)
	return nil
}

func (s *batchService) RetryItem(ctx context.Context, itemID string) error {
	const op = "BatchService.RetryItem"

	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to load item %s", op, itemID), err, false)
	}
	batch, err := s.repo.GetBatch(ctx, item.BatchID)
	if err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to load batch %s", op, item.BatchID), err, false)
	}
	if batch.Status != model.BatchStatusFailed {
		return exception.NewBatchError("usecase",
			fmt.Sprintf("%s: batch %s is %s, only items of a failed batch can be retried", op, batch.ID, batch.Status), nil, false)
	}

	if err := item.ResetForRetry(); err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: item %s cannot be retried", op, itemID), err, false)
	}
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to persist retry reset of item %s", op, itemID), err, false)
	}

	// Reopen the batch so the executor picks the item up again.
	if err := batch.TransitionTo(model.BatchStatusRunning); err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to reopen batch %s", op, batch.ID), err, false)
	}
	if err := s.repo.UpdateBatch(ctx, batch); err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to persist reopened batch %s", op, batch.ID), err, false)
	}
	logger.Infof("Item (ID: %s) reset for retry, re-executing batch (ID: %s).", itemID, batch.ID)

	return s.executor.Execute(ctx, batch.ID)
}

func (s *batchService) GetBatchDetail(ctx context.Context, batchID string) (*BatchDetail, error) {
	const op = "BatchService.GetBatchDetail"

	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to load batch %s", op, batchID), err, false)
	}
	items, err := s.repo.ListItems(ctx, batchID)
	if err != nil {
		return nil, exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to load items of batch %s", op, batchID), err, false)
	}
	return &BatchDetail{Batch: batch, Items: items}, nil
}

func (s *batchService) ListActiveBatches(ctx context.Context) ([]*model.Batch, error) {
	const op = "BatchService.ListActiveBatches"

	batches, err := s.repo.ListActiveBatches(ctx)
	if err != nil {
		return nil, exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to list active batches", op), err, false)
	}
	return batches, nil
}

func (s *batchService) DeleteBatch(ctx context.Context, batchID string) error {
	const op = "BatchService.DeleteBatch"

	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to load batch %s", op, batchID), err, false)
	}
	if !batch.Status.IsTerminal() {
		return exception.NewBatchError("usecase",
			fmt.Sprintf("%s: batch %s is %s, only finished batches can be deleted", op, batchID, batch.Status), nil, false)
	}
	if err := s.repo.DeleteBatch(ctx, batchID); err != nil {
		return exception.NewBatchError("usecase", fmt.Sprintf("%s: failed to delete batch %s", op, batchID), err, false)
	}
	logger.Infof("Batch (ID: %s) and its items deleted.", batchID)
	return nil
}

var _ BatchService = (*batchService)(nil)
