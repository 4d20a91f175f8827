package repository

import (
	"context"
	"errors"
	"time"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
)

// ErrBatchNotFound is the error returned when a Batch is not found.
var ErrBatchNotFound = errors.New("batch not found")

func init() {
	// Register the error type in the registry upon engine startup.
	exception.RegisterErrorType("ErrBatchNotFound", ErrBatchNotFound)
}

// BatchRepository defines persistence operations for Batch aggregates.
type BatchRepository interface {
	// SaveBatch persists a new Batch together with all of its items.
	// A batch's item set is fixed at creation; both are written in the same
	// transaction.
	SaveBatch(ctx context.Context, batch *model.Batch, items []*model.BatchItem) error

	// UpdateBatch updates the state of an existing Batch.
	UpdateBatch(ctx context.Context, batch *model.Batch) error

	// GetBatch finds a Batch by its ID.
	GetBatch(ctx context.Context, id string) (*model.Batch, error)

	// ListDueScheduledBatches returns batches in SCHEDULED status whose
	// ScheduledAt is at or before now.
	ListDueScheduledBatches(ctx context.Context, now time.Time) ([]*model.Batch, error)

	// ListActiveBatches returns all batches not yet in a terminal status.
	ListActiveBatches(ctx context.Context) ([]*model.Batch, error)

	// ClaimBatch atomically transitions a batch from SCHEDULED to RUNNING.
	// It returns true only if this caller performed the transition; a batch
	// already claimed by another trigger path yields false without error.
	ClaimBatch(ctx context.Context, id string) (bool, error)

	// DeleteBatch removes a batch and all of its items in one transaction.
	DeleteBatch(ctx context.Context, id string) error
}
