package model

import (
	"fmt"
	"time"

	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// StepStatus represents the state of one sub-step (modify or re-advertise) of
// a batch item's pipeline.
type StepStatus string

const (
	StepStatusPending    StepStatus = "PENDING"
	StepStatusInProgress StepStatus = "IN_PROGRESS"
	StepStatusCompleted  StepStatus = "COMPLETED"
	StepStatusFailed     StepStatus = "FAILED"
	StepStatusSkipped    StepStatus = "SKIPPED"
)

// String returns the string representation of the StepStatus.
func (s StepStatus) String() string {
	return string(s)
}

// IsTerminal checks if the StepStatus represents a finished state for that sub-step.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusCompleted, StepStatusFailed, StepStatusSkipped:
		return true
	default:
		return false
	}
}

// ItemStatus represents the derived overall state of a batch item. It is never
// set independently; DeriveItemStatus computes it from the sub-step statuses.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "PENDING"
	ItemStatusInProgress ItemStatus = "IN_PROGRESS"
	ItemStatusCompleted  ItemStatus = "COMPLETED"
	ItemStatusFailed     ItemStatus = "FAILED"
)

// String returns the string representation of the ItemStatus.
func (s ItemStatus) String() string {
	return string(s)
}

// IsTerminal checks if the ItemStatus represents a finished state.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusCompleted || s == ItemStatusFailed
}

// DeriveItemStatus maps the two sub-step statuses to the overall item status.
// This is the single source of truth; call sites must not compute it themselves.
func DeriveItemStatus(modify, reAdvertise StepStatus) ItemStatus {
	switch modify {
	case StepStatusPending:
		return ItemStatusPending
	case StepStatusInProgress:
		return ItemStatusInProgress
	case StepStatusFailed:
		return ItemStatusFailed
	case StepStatusCompleted, StepStatusSkipped:
		switch reAdvertise {
		case StepStatusCompleted, StepStatusSkipped:
			return ItemStatusCompleted
		case StepStatusFailed:
			return ItemStatusFailed
		default:
			return ItemStatusInProgress
		}
	default:
		return ItemStatusPending
	}
}

// Step name constants used for the CurrentStep observability field and metrics
// labels. CurrentStep is never used for control logic.
const (
	StepModify      = "modify"
	StepReAdvertise = "re_advertise"
)

// BatchItem is one unit of work within a batch: a single listing update driven
// through the modify and re-advertise sub-steps. OfferID is a weak reference
// to the subject listing; the ListingTitle/ListingAddress snapshot stays
// authoritative for history if the listing is later removed.
type BatchItem struct {
	ID      string
	BatchID string
	OfferID string

	ListingTitle   string
	ListingAddress string

	Status            ItemStatus
	ModifyStatus      StepStatus
	ReAdvertiseStatus StepStatus
	ShouldReAdvertise bool

	ModifiedPrice         *int64
	ModifiedRent          *int64
	ModifiedFloorExposure *bool

	CurrentStep  string
	ErrorMessage string
	RetryCount   int

	CreatedAt              time.Time
	ModifyStartedAt        *time.Time
	ModifyCompletedAt      *time.Time
	ReAdvertiseStartedAt   *time.Time
	ReAdvertiseCompletedAt *time.Time
	LastUpdated            time.Time
	Version                int
}

// NewBatchItem creates a new BatchItem owned by the given batch. When the item
// should not be re-advertised, the re-advertise sub-step is SKIPPED from the
// start and never transitions further.
func NewBatchItem(batchID, offerID string, shouldReAdvertise bool) *BatchItem {
	now := time.Now()
	reAdvertiseStatus := StepStatusPending
	if !shouldReAdvertise {
		reAdvertiseStatus = StepStatusSkipped
	}
	return &BatchItem{
		ID:                NewID(),
		BatchID:           batchID,
		OfferID:           offerID,
		Status:            ItemStatusPending,
		ModifyStatus:      StepStatusPending,
		ReAdvertiseStatus: reAdvertiseStatus,
		ShouldReAdvertise: shouldReAdvertise,
		CreatedAt:         now,
		LastUpdated:       now,
		Version:           0,
	}
}

// isValidStepTransition checks if a sub-step state transition is valid.
// FAILED -> PENDING is the explicit retry reset; COMPLETED and SKIPPED never
// transition.
func isValidStepTransition(current, next StepStatus) bool {
	switch current {
	case StepStatusPending:
		return next == StepStatusInProgress
	case StepStatusInProgress:
		return next == StepStatusCompleted || next == StepStatusFailed
	case StepStatusFailed:
		return next == StepStatusPending
	case StepStatusCompleted, StepStatusSkipped:
		return false
	default:
		return false
	}
}

// refreshStatus rederives the overall item status from the sub-step statuses.
func (it *BatchItem) refreshStatus() {
	it.Status = DeriveItemStatus(it.ModifyStatus, it.ReAdvertiseStatus)
	it.LastUpdated = time.Now()
}

// StartModify transitions the modify sub-step to IN_PROGRESS.
func (it *BatchItem) StartModify() error {
	if !isValidStepTransition(it.ModifyStatus, StepStatusInProgress) {
		return fmt.Errorf("BatchItem (ID: %s): invalid modify transition: %s -> %s", it.ID, it.ModifyStatus, StepStatusInProgress)
	}
	it.ModifyStatus = StepStatusInProgress
	it.CurrentStep = StepModify
	now := time.Now()
	if it.ModifyStartedAt == nil {
		it.ModifyStartedAt = &now
	}
	it.refreshStatus()
	return nil
}

// CompleteModify marks the modify sub-step COMPLETED.
func (it *BatchItem) CompleteModify() {
	if !isValidStepTransition(it.ModifyStatus, StepStatusCompleted) {
		logger.Warnf("BatchItem (ID: %s): forcing modify status %s -> COMPLETED", it.ID, it.ModifyStatus)
	}
	it.ModifyStatus = StepStatusCompleted
	now := time.Now()
	it.ModifyCompletedAt = &now
	it.ErrorMessage = ""
	it.refreshStatus()
}

// FailModify marks the modify sub-step FAILED and records the error message.
func (it *BatchItem) FailModify(err error) {
	if !isValidStepTransition(it.ModifyStatus, StepStatusFailed) {
		logger.Warnf("BatchItem (ID: %s): forcing modify status %s -> FAILED", it.ID, it.ModifyStatus)
	}
	it.ModifyStatus = StepStatusFailed
	now := time.Now()
	it.ModifyCompletedAt = &now
	if err != nil {
		it.ErrorMessage = exception.ExtractErrorMessage(err)
	}
	it.refreshStatus()
}

// StartReAdvertise transitions the re-advertise sub-step to IN_PROGRESS.
// It is gated on the modify sub-step: re-advertise cannot start while modify
// is pending, in progress, or failed.
func (it *BatchItem) StartReAdvertise() error {
	if it.ModifyStatus != StepStatusCompleted && it.ModifyStatus != StepStatusSkipped {
		return fmt.Errorf("BatchItem (ID: %s): re-advertise cannot start while modify is %s", it.ID, it.ModifyStatus)
	}
	if !isValidStepTransition(it.ReAdvertiseStatus, StepStatusInProgress) {
		return fmt.Errorf("BatchItem (ID: %s): invalid re-advertise transition: %s -> %s", it.ID, it.ReAdvertiseStatus, StepStatusInProgress)
	}
	it.ReAdvertiseStatus = StepStatusInProgress
	it.CurrentStep = StepReAdvertise
	now := time.Now()
	if it.ReAdvertiseStartedAt == nil {
		it.ReAdvertiseStartedAt = &now
	}
	it.refreshStatus()
	return nil
}

// CompleteReAdvertise marks the re-advertise sub-step COMPLETED.
func (it *BatchItem) CompleteReAdvertise() {
	if !isValidStepTransition(it.ReAdvertiseStatus, StepStatusCompleted) {
		logger.Warnf("BatchItem (ID: %s): forcing re-advertise status %s -> COMPLETED", it.ID, it.ReAdvertiseStatus)
	}
	it.ReAdvertiseStatus = StepStatusCompleted
	now := time.Now()
	it.ReAdvertiseCompletedAt = &now
	it.CurrentStep = ""
	it.ErrorMessage = ""
	it.refreshStatus()
}

// FailReAdvertise marks the re-advertise sub-step FAILED and records the error message.
func (it *BatchItem) FailReAdvertise(err error) {
	if !isValidStepTransition(it.ReAdvertiseStatus, StepStatusFailed) {
		logger.Warnf("BatchItem (ID: %s): forcing re-advertise status %s -> FAILED", it.ID, it.ReAdvertiseStatus)
	}
	it.ReAdvertiseStatus = StepStatusFailed
	now := time.Now()
	it.ReAdvertiseCompletedAt = &now
	if err != nil {
		it.ErrorMessage = exception.ExtractErrorMessage(err)
	}
	it.refreshStatus()
}

// ResetModifyForRetry resets a failed modify sub-step to PENDING and
// increments the retry counter. The caller enforces the maximum-attempts
// policy before invoking this.
func (it *BatchItem) ResetModifyForRetry() error {
	if !isValidStepTransition(it.ModifyStatus, StepStatusPending) {
		return fmt.Errorf("BatchItem (ID: %s): modify is %s, only FAILED can be reset for retry", it.ID, it.ModifyStatus)
	}
	it.ModifyStatus = StepStatusPending
	it.ModifyCompletedAt = nil
	it.RetryCount++
	it.refreshStatus()
	return nil
}

// ResetReAdvertiseForRetry resets a failed re-advertise sub-step to PENDING
// and increments the retry counter.
func (it *BatchItem) ResetReAdvertiseForRetry() error {
	if !isValidStepTransition(it.ReAdvertiseStatus, StepStatusPending) {
		return fmt.Errorf("BatchItem (ID: %s): re-advertise is %s, only FAILED can be reset for retry", it.ID, it.ReAdvertiseStatus)
	}
	it.ReAdvertiseStatus = StepStatusPending
	it.ReAdvertiseCompletedAt = nil
	it.RetryCount++
	it.refreshStatus()
	return nil
}

// ResetForRetry resets a failed item so a new execution pass can pick it up
// from the first unfinished sub-step. This is the externally-invoked operator
// action, distinct from the automatic in-pass retries; it clears the retry
// counter and the recorded error.
func (it *BatchItem) ResetForRetry() error {
	if it.Status != ItemStatusFailed {
		return fmt.Errorf("BatchItem (ID: %s): only failed items can be reset, status is %s", it.ID, it.Status)
	}
	if it.ModifyStatus == StepStatusFailed {
		it.ModifyStatus = StepStatusPending
		it.ModifyCompletedAt = nil
	}
	if it.ReAdvertiseStatus == StepStatusFailed {
		it.ReAdvertiseStatus = StepStatusPending
		it.ReAdvertiseCompletedAt = nil
	}
	it.RetryCount = 0
	it.ErrorMessage = ""
	it.CurrentStep = ""
	it.refreshStatus()
	return nil
}
