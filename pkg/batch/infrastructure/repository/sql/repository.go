// Package sql provides the GORM-backed implementation of the repository
// interfaces.
package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/relist/pkg/batch/core/domain/repository"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
)

// Repository is the GORM implementation of repository.Repository.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new SQL-backed Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ repository.Repository = (*Repository)(nil)

func (r *Repository) SaveBatch(ctx context.Context, batch *model.Batch, items []*model.BatchItem) error {
	const op = "SQLRepository.SaveBatch"

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toBatchEntity(batch)).Error; err != nil {
			return exception.NewBatchError("repository", fmt.Sprintf("%s: failed to insert batch %s", op, batch.ID), err, false)
		}
		if len(items) == 0 {
			return nil
		}
		entities := make([]*BatchItemEntity, 0, len(items))
		for _, item := range items {
			entities = append(entities, toItemEntity(item))
		}
		if err := tx.Create(entities).Error; err != nil {
			return exception.NewBatchError("repository", fmt.Sprintf("%s: failed to insert items of batch %s", op, batch.ID), err, false)
		}
		return nil
	})
}

// UpdateBatch writes the batch state guarded by optimistic locking: the row is
// only updated when the stored version matches the one the caller loaded.
func (r *Repository) UpdateBatch(ctx context.Context, batch *model.Batch) error {
	const op = "SQLRepository.UpdateBatch"

	expectedVersion := batch.Version
	entity := toBatchEntity(batch)
	entity.Version = expectedVersion + 1

	res := r.db.WithContext(ctx).
		Model(&BatchEntity{}).
		Where("id = ? AND version = ?", batch.ID, expectedVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(entity)
	if res.Error != nil {
		return exception.NewBatchError("repository", fmt.Sprintf("%s: failed to update batch %s", op, batch.ID), res.Error, false)
	}
	if res.RowsAffected == 0 {
		if exists, err := r.batchExists(ctx, batch.ID); err != nil {
			return exception.NewBatchError("repository", fmt.Sprintf("%s: failed to check batch %s", op, batch.ID), err, false)
		} else if !exists {
			return repository.ErrBatchNotFound
		}
		return exception.NewOptimisticLockingFailure("repository",
			fmt.Sprintf("%s: batch %s was modified concurrently (expected version %d)", op, batch.ID, expectedVersion))
	}
	batch.Version = entity.Version
	return nil
}

func (r *Repository) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	const op = "SQLRepository.GetBatch"

	var entity BatchEntity
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBatchNotFound
		}
		return nil, exception.NewBatchError("repository", fmt.Sprintf("%s: failed to load batch %s", op, id), err, false)
	}
	return toBatchModel(&entity), nil
}

func (r *Repository) ListDueScheduledBatches(ctx context.Context, now time.Time) ([]*model.Batch, error) {
	const op = "SQLRepository.ListDueScheduledBatches"

	var entities []*BatchEntity
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", model.BatchStatusScheduled.String(), now).
		Order("scheduled_at, id").
		Find(&entities).Error
	if err != nil {
		return nil, exception.NewBatchError("repository", fmt.Sprintf("%s: failed to list due batches", op), err, false)
	}
	return toBatchModels(entities), nil
}

func (r *Repository) ListActiveBatches(ctx context.Context) ([]*model.Batch, error) {
	const op = "SQLRepository.ListActiveBatches"

	var entities []*BatchEntity
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{
			model.BatchStatusPending.String(),
			model.BatchStatusScheduled.String(),
			model.BatchStatusRunning.String(),
		}).
		Order("created_at, id").
		Find(&entities).Error
	if err != nil {
		return nil, exception.NewBatchError("repository", fmt.Sprintf("%s: failed to list active batches", op), err, false)
	}
	return toBatchModels(entities), nil
}

// ClaimBatch performs the atomic SCHEDULED -> RUNNING transition with a single
// conditional update. Exactly one of any number of concurrent claimers sees a
// non-zero row count.
func (r *Repository) ClaimBatch(ctx context.Context, id string) (bool, error) {
	const op = "SQLRepository.ClaimBatch"

	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&BatchEntity{}).
		Where("id = ? AND status = ?", id, model.BatchStatusScheduled.String()).
		Updates(map[string]interface{}{
			"status":       model.BatchStatusRunning.String(),
			"started_at":   now,
			"last_updated": now,
			"version":      gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, exception.NewBatchError("repository", fmt.Sprintf("%s: failed to claim batch %s", op, id), res.Error, false)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	exists, err := r.batchExists(ctx, id)
	if err != nil {
		return false, exception.NewBatchError("repository", fmt.Sprintf("%s: failed to check batch %s", op, id), err, false)
	}
	if !exists {
		return false, repository.ErrBatchNotFound
	}
	return false, nil
}

func (r *Repository) DeleteBatch(ctx context.Context, id string) error {
	const op = "SQLRepository.DeleteBatch"

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id = ?", id).Delete(&BatchItemEntity{}).Error; err != nil {
			return exception.NewBatchError("repository", fmt.Sprintf("%s: failed to delete items of batch %s", op, id), err, false)
		}
		res := tx.Where("id = ?", id).Delete(&BatchEntity{})
		if res.Error != nil {
			return exception.NewBatchError("repository", fmt.Sprintf("%s: failed to delete batch %s", op, id), res.Error, false)
		}
		if res.RowsAffected == 0 {
			return repository.ErrBatchNotFound
		}
		return nil
	})
}

func (r *Repository) ListItems(ctx context.Context, batchID string) ([]*model.BatchItem, error) {
	const op = "SQLRepository.ListItems"

	var entities []*BatchItemEntity
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at, id").
		Find(&entities).Error
	if err != nil {
		return nil, exception.NewBatchError("repository", fmt.Sprintf("%s: failed to list items of batch %s", op, batchID), err, false)
	}
	items := make([]*model.BatchItem, 0, len(entities))
	for _, e := range entities {
		items = append(items, toItemModel(e))
	}
	return items, nil
}

func (r *Repository) GetItem(ctx context.Context, id string) (*model.BatchItem, error) {
	const op = "SQLRepository.GetItem"

	var entity BatchItemEntity
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBatchItemNotFound
		}
		return nil, exception.NewBatchError("repository", fmt.Sprintf("%s: failed to load item %s", op, id), err, false)
	}
	return toItemModel(&entity), nil
}

// UpdateItem writes the item state guarded by optimistic locking, same scheme
// as UpdateBatch.
func (r *Repository) UpdateItem(ctx context.Context, item *model.BatchItem) error {
	const op = "SQLRepository.UpdateItem"

	expectedVersion := item.Version
	entity := toItemEntity(item)
	entity.Version = expectedVersion + 1

	res := r.db.WithContext(ctx).
		Model(&BatchItemEntity{}).
		Where("id = ? AND version = ?", item.ID, expectedVersion).
		Select("*").
		Omit("id", "batch_id", "created_at").
		Updates(entity)
	if res.Error != nil {
		return exception.NewBatchError("repository", fmt.Sprintf("%s: failed to update item %s", op, item.ID), res.Error, false)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&BatchItemEntity{}).Where("id = ?", item.ID).Count(&count).Error; err != nil {
			return exception.NewBatchError("repository", fmt.Sprintf("%s: failed to check item %s", op, item.ID), err, false)
		}
		if count == 0 {
			return repository.ErrBatchItemNotFound
		}
		return exception.NewOptimisticLockingFailure("repository",
			fmt.Sprintf("%s: item %s was modified concurrently (expected version %d)", op, item.ID, expectedVersion))
	}
	item.Version = entity.Version
	return nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) batchExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&BatchEntity{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func toBatchModels(entities []*BatchEntity) []*model.Batch {
	batches := make([]*model.Batch, 0, len(entities))
	for _, e := range entities {
		batches = append(batches, toBatchModel(e))
	}
	return batches
}
