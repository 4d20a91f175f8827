package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// BatchStatus represents the state of a listing-update batch.
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "PENDING"
	BatchStatusScheduled BatchStatus = "SCHEDULED"
	BatchStatusRunning   BatchStatus = "RUNNING"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusFailed    BatchStatus = "FAILED"
	BatchStatusCancelled BatchStatus = "CANCELLED"
)

// String returns the string representation of the BatchStatus.
func (s BatchStatus) String() string {
	return string(s)
}

// IsTerminal checks if the BatchStatus represents a finished state.
func (s BatchStatus) IsTerminal() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusCancelled:
		return true
	default:
		return false
	}
}

// IsCancellable reports whether a batch in this status may still be cancelled.
func (s BatchStatus) IsCancellable() bool {
	switch s {
	case BatchStatusPending, BatchStatusScheduled, BatchStatusRunning:
		return true
	default:
		return false
	}
}

// Batch is a named group of listing-update items created together and executed
// together. Roll-up counts are recomputed from item statuses after every item
// transition; TotalCount is fixed at creation.
type Batch struct {
	ID             string
	Name           string
	Status         BatchStatus
	TotalCount     int
	CompletedCount int
	FailedCount    int
	ScheduledAt    *time.Time
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	LastUpdated    time.Time
	Version        int
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// NewBatch creates a new Batch. A nil scheduledAt creates the batch in PENDING
// for immediate execution; a non-nil scheduledAt creates it in SCHEDULED.
// TotalCount must be set by the caller once items are attached.
func NewBatch(name string, scheduledAt *time.Time) *Batch {
	now := time.Now()
	status := BatchStatusPending
	if scheduledAt != nil {
		status = BatchStatusScheduled
	}
	return &Batch{
		ID:          NewID(),
		Name:        name,
		Status:      status,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		LastUpdated: now,
		Version:     0,
	}
}

// isValidBatchTransition checks if the state transition for a Batch is valid.
// FAILED -> RUNNING is permitted solely for the operator-invoked item retry
// path; COMPLETED and CANCELLED never transition.
func isValidBatchTransition(current, next BatchStatus) bool {
	switch current {
	case BatchStatusPending:
		return next == BatchStatusRunning || next == BatchStatusCancelled
	case BatchStatusScheduled:
		return next == BatchStatusRunning || next == BatchStatusCancelled
	case BatchStatusRunning:
		return next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusCancelled
	case BatchStatusFailed:
		return next == BatchStatusRunning
	case BatchStatusCompleted, BatchStatusCancelled:
		return false
	default:
		return false
	}
}

// TransitionTo safely transitions the state of the Batch.
func (b *Batch) TransitionTo(newStatus BatchStatus) error {
	if !isValidBatchTransition(b.Status, newStatus) {
		return fmt.Errorf("Batch (ID: %s): invalid state transition: %s -> %s", b.ID, b.Status, newStatus)
	}
	b.Status = newStatus
	b.LastUpdated = time.Now()
	return nil
}

// MarkAsRunning updates the Batch status to RUNNING and stamps StartedAt once.
// Re-entrant executions of an already-running batch keep the original StartedAt.
func (b *Batch) MarkAsRunning() {
	if b.Status != BatchStatusRunning {
		if err := b.TransitionTo(BatchStatusRunning); err != nil {
			logger.Warnf("Could not update Batch (ID: %s) status to RUNNING: %v", b.ID, err)
			b.Status = BatchStatusRunning
		}
	}
	if b.StartedAt == nil {
		now := time.Now()
		b.StartedAt = &now
	}
	b.LastUpdated = time.Now()
}

// MarkAsCancelled updates the Batch status to CANCELLED.
// Items already completed or failed keep their outcomes.
func (b *Batch) MarkAsCancelled() error {
	if err := b.TransitionTo(BatchStatusCancelled); err != nil {
		return err
	}
	return nil
}

// RecalculateCounts recomputes the roll-up counts from item statuses.
// It never touches TotalCount, which is fixed at creation.
func (b *Batch) RecalculateCounts(items []*BatchItem) {
	completed, failed := 0, 0
	for _, item := range items {
		switch item.Status {
		case ItemStatusCompleted:
			completed++
		case ItemStatusFailed:
			failed++
		}
	}
	b.CompletedCount = completed
	b.FailedCount = failed
	b.LastUpdated = time.Now()
}

// AllItemsTerminal reports whether every item has reached a terminal status.
func AllItemsTerminal(items []*BatchItem) bool {
	for _, item := range items {
		if !item.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Finalize recomputes counts and settles the terminal status of the batch
// after execution ends. A cancelled batch stays CANCELLED; otherwise the batch
// becomes FAILED when any item failed, COMPLETED when none did. CompletedAt is
// stamped exactly once. Finalize is a no-op on the status when items are still
// in flight (a cancelled execution leaves non-terminal items behind).
func (b *Batch) Finalize(items []*BatchItem) {
	b.RecalculateCounts(items)

	if b.Status == BatchStatusCancelled {
		b.stampCompletedAt()
		return
	}

	if !AllItemsTerminal(items) {
		return
	}

	next := BatchStatusCompleted
	if b.FailedCount > 0 {
		next = BatchStatusFailed
	}
	if b.Status != next {
		if err := b.TransitionTo(next); err != nil {
			logger.Warnf("Could not finalize Batch (ID: %s) to %s: %v", b.ID, next, err)
			return
		}
	}
	b.stampCompletedAt()
}

func (b *Batch) stampCompletedAt() {
	if b.CompletedAt == nil {
		now := time.Now()
		b.CompletedAt = &now
	}
	b.LastUpdated = time.Now()
}

// CheckCountInvariant verifies completed + failed <= total. Violations indicate
// a bug in aggregate recomputation and are logged, never silently corrected.
func (b *Batch) CheckCountInvariant() error {
	if b.CompletedCount+b.FailedCount > b.TotalCount {
		return fmt.Errorf("Batch (ID: %s): count invariant violated: completed=%d failed=%d total=%d",
			b.ID, b.CompletedCount, b.FailedCount, b.TotalCount)
	}
	return nil
}
