// Package inmemory provides a map-backed implementation of the repository
// interfaces, used in tests and for ephemeral runs.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/relist/pkg/batch/core/domain/repository"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
)

// Repository is an in-memory repository.Repository. All reads return deep
// copies so callers never share state with the store; all writes go through
// the same optimistic version check the SQL implementation applies.
type Repository struct {
	mu      sync.RWMutex
	batches map[string]*model.Batch
	items   map[string]*model.BatchItem
}

// NewRepository creates an empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{
		batches: make(map[string]*model.Batch),
		items:   make(map[string]*model.BatchItem),
	}
}

var _ repository.Repository = (*Repository)(nil)

func copyBatch(b *model.Batch) *model.Batch {
	c := *b
	return &c
}

func copyItem(it *model.BatchItem) *model.BatchItem {
	c := *it
	return &c
}

func (r *Repository) SaveBatch(ctx context.Context, batch *model.Batch, items []*model.BatchItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.batches[batch.ID] = copyBatch(batch)
	for _, item := range items {
		r.items[item.ID] = copyItem(item)
	}
	return nil
}

func (r *Repository) UpdateBatch(ctx context.Context, batch *model.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.batches[batch.ID]
	if !ok {
		return repository.ErrBatchNotFound
	}
	if stored.Version != batch.Version {
		return exception.NewOptimisticLockingFailure("repository",
			"batch "+batch.ID+" was modified concurrently")
	}
	batch.Version++
	r.batches[batch.ID] = copyBatch(batch)
	return nil
}

func (r *Repository) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.batches[id]
	if !ok {
		return nil, repository.ErrBatchNotFound
	}
	return copyBatch(stored), nil
}

func (r *Repository) ListDueScheduledBatches(ctx context.Context, now time.Time) ([]*model.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*model.Batch
	for _, b := range r.batches {
		if b.Status == model.BatchStatusScheduled && b.ScheduledAt != nil && !b.ScheduledAt.After(now) {
			due = append(due, copyBatch(b))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledAt.Equal(*due[j].ScheduledAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].ScheduledAt.Before(*due[j].ScheduledAt)
	})
	return due, nil
}

func (r *Repository) ListActiveBatches(ctx context.Context) ([]*model.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*model.Batch
	for _, b := range r.batches {
		if !b.Status.IsTerminal() {
			active = append(active, copyBatch(b))
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID < active[j].ID
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active, nil
}

func (r *Repository) ClaimBatch(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.batches[id]
	if !ok {
		return false, repository.ErrBatchNotFound
	}
	if stored.Status != model.BatchStatusScheduled {
		return false, nil
	}
	stored.Status = model.BatchStatusRunning
	now := time.Now()
	if stored.StartedAt == nil {
		stored.StartedAt = &now
	}
	stored.LastUpdated = now
	stored.Version++
	return true, nil
}

func (r *Repository) DeleteBatch(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.batches[id]; !ok {
		return repository.ErrBatchNotFound
	}
	delete(r.batches, id)
	for itemID, item := range r.items {
		if item.BatchID == id {
			delete(r.items, itemID)
		}
	}
	return nil
}

func (r *Repository) ListItems(ctx context.Context, batchID string) ([]*model.BatchItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*model.BatchItem
	for _, item := range r.items {
		if item.BatchID == batchID {
			items = append(items, copyItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (r *Repository) GetItem(ctx context.Context, id string) (*model.BatchItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.items[id]
	if !ok {
		return nil, repository.ErrBatchItemNotFound
	}
	return copyItem(stored), nil
}

func (r *Repository) UpdateItem(ctx context.Context, item *model.BatchItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[item.ID]
	if !ok {
		return repository.ErrBatchItemNotFound
	}
	if stored.Version != item.Version {
		return exception.NewOptimisticLockingFailure("repository",
			"item "+item.ID+" was modified concurrently")
	}
	item.Version++
	r.items[item.ID] = copyItem(item)
	return nil
}

// Close is a no-op for the in-memory repository.
func (r *Repository) Close() error {
	return nil
}
