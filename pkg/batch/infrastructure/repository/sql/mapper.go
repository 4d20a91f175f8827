package sql

import (
	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
)

func toBatchEntity(b *model.Batch) *BatchEntity {
	return &BatchEntity{
		ID:             b.ID,
		Name:           b.Name,
		Status:         b.Status.String(),
		TotalCount:     b.TotalCount,
		CompletedCount: b.CompletedCount,
		FailedCount:    b.FailedCount,
		ScheduledAt:    b.ScheduledAt,
		CreatedAt:      b.CreatedAt,
		StartedAt:      b.StartedAt,
		CompletedAt:    b.CompletedAt,
		LastUpdated:    b.LastUpdated,
		Version:        b.Version,
	}
}

func toBatchModel(e *BatchEntity) *model.Batch {
	return &model.Batch{
		ID:             e.ID,
		Name:           e.Name,
		Status:         model.BatchStatus(e.Status),
		TotalCount:     e.TotalCount,
		CompletedCount: e.CompletedCount,
		FailedCount:    e.FailedCount,
		ScheduledAt:    e.ScheduledAt,
		CreatedAt:      e.CreatedAt,
		StartedAt:      e.StartedAt,
		CompletedAt:    e.CompletedAt,
		LastUpdated:    e.LastUpdated,
		Version:        e.Version,
	}
}

func toItemEntity(it *model.BatchItem) *BatchItemEntity {
	return &BatchItemEntity{
		ID:                     it.ID,
		BatchID:                it.BatchID,
		OfferID:                it.OfferID,
		ListingTitle:           it.ListingTitle,
		ListingAddress:         it.ListingAddress,
		Status:                 it.Status.String(),
		ModifyStatus:           it.ModifyStatus.String(),
		ReAdvertiseStatus:      it.ReAdvertiseStatus.String(),
		ShouldReAdvertise:      it.ShouldReAdvertise,
		ModifiedPrice:          it.ModifiedPrice,
		ModifiedRent:           it.ModifiedRent,
		ModifiedFloorExposure:  it.ModifiedFloorExposure,
		CurrentStep:            it.CurrentStep,
		ErrorMessage:           it.ErrorMessage,
		RetryCount:             it.RetryCount,
		CreatedAt:              it.CreatedAt,
		ModifyStartedAt:        it.ModifyStartedAt,
		ModifyCompletedAt:      it.ModifyCompletedAt,
		ReAdvertiseStartedAt:   it.ReAdvertiseStartedAt,
		ReAdvertiseCompletedAt: it.ReAdvertiseCompletedAt,
		LastUpdated:            it.LastUpdated,
		Version:                it.Version,
	}
}

func toItemModel(e *BatchItemEntity) *model.BatchItem {
	return &model.BatchItem{
		ID:                     e.ID,
		BatchID:                e.BatchID,
		OfferID:                e.OfferID,
		ListingTitle:           e.ListingTitle,
		ListingAddress:         e.ListingAddress,
		Status:                 model.ItemStatus(e.Status),
		ModifyStatus:           model.StepStatus(e.ModifyStatus),
		ReAdvertiseStatus:      model.StepStatus(e.ReAdvertiseStatus),
		ShouldReAdvertise:      e.ShouldReAdvertise,
		ModifiedPrice:          e.ModifiedPrice,
		ModifiedRent:           e.ModifiedRent,
		ModifiedFloorExposure:  e.ModifiedFloorExposure,
		CurrentStep:            e.CurrentStep,
		ErrorMessage:           e.ErrorMessage,
		RetryCount:             e.RetryCount,
		CreatedAt:              e.CreatedAt,
		ModifyStartedAt:        e.ModifyStartedAt,
		ModifyCompletedAt:      e.ModifyCompletedAt,
		ReAdvertiseStartedAt:   e.ReAdvertiseStartedAt,
		ReAdvertiseCompletedAt: e.ReAdvertiseCompletedAt,
		LastUpdated:            e.LastUpdated,
		Version:                e.Version,
	}
}
