package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
)

// ErrBatchItemNotFound is the error returned when a BatchItem is not found.
var ErrBatchItemNotFound = errors.New("batch item not found")

func init() {
	// Register the error type in the registry upon engine startup.
	exception.RegisterErrorType("ErrBatchItemNotFound", ErrBatchItemNotFound)
}

// ItemRepository defines persistence operations for BatchItems.
// Items are created together with their batch (see BatchRepository.SaveBatch)
// and are never deleted individually.
type ItemRepository interface {
	// ListItems returns all items of a batch in creation order. The stable
	// order is what makes re-entry after a crash deterministic.
	ListItems(ctx context.Context, batchID string) ([]*model.BatchItem, error)

	// GetItem finds a BatchItem by its ID.
	GetItem(ctx context.Context, id string) (*model.BatchItem, error)

	// UpdateItem updates the state of an existing BatchItem.
	UpdateItem(ctx context.Context, item *model.BatchItem) error
}
