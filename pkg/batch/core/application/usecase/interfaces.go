package usecase

import (
	"context"
	"time"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
)

// ItemSpec describes one listing update requested at batch creation time.
type ItemSpec struct {
	OfferID           string
	ListingTitle      string
	ListingAddress    string
	ShouldReAdvertise bool

	ModifiedPrice         *int64
	ModifiedRent          *int64
	ModifiedFloorExposure *bool
}

// BatchDetail is the full read model of a batch: the aggregate and its items
// in creation order.
type BatchDetail struct {
	Batch *model.Batch
	Items []*model.BatchItem
}

// BatchService is the application-facing API of the engine. All operations
// are safe to call concurrently; execution races are settled by the atomic
// claim and optimistic locking underneath.
type BatchService interface {
	// CreateBatch creates a batch with its full item set. A nil scheduledAt
	// creates the batch PENDING for manual execution; otherwise it is
	// SCHEDULED and the scheduler fires it when due.
	CreateBatch(ctx context.Context, name string, specs []ItemSpec, scheduledAt *time.Time) (*model.Batch, error)

	// ExecuteNow runs a batch synchronously. A scheduled batch is claimed
	// first so a racing timer trigger cannot run it twice.
	ExecuteNow(ctx context.Context, batchID string) error

	// Cancel requests cooperative cancellation. A running execution stops at
	// its next checkpoint; items already finished keep their outcomes.
	Cancel(ctx context.Context, batchID string) error

	// RetryItem resets a failed item of a failed batch and re-executes the
	// batch, which resumes that item from its first unfinished sub-step.
	RetryItem(ctx context.Context, itemID string) error

	// GetBatchDetail returns a batch with all of its items.
	GetBatchDetail(ctx context.Context, batchID string) (*BatchDetail, error)

	// ListActiveBatches returns all batches not yet in a terminal status.
	ListActiveBatches(ctx context.Context) ([]*model.Batch, error)

	// DeleteBatch removes a terminal batch and its items.
	DeleteBatch(ctx context.Context, batchID string) error
}
