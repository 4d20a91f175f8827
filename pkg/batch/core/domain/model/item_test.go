package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveItemStatus(t *testing.T) {
	tests := []struct {
		modify      StepStatus
		reAdvertise StepStatus
		want        ItemStatus
	}{
		{StepStatusPending, StepStatusPending, ItemStatusPending},
		{StepStatusPending, StepStatusSkipped, ItemStatusPending},
		{StepStatusInProgress, StepStatusPending, ItemStatusInProgress},
		{StepStatusFailed, StepStatusPending, ItemStatusFailed},
		{StepStatusFailed, StepStatusSkipped, ItemStatusFailed},
		{StepStatusCompleted, StepStatusPending, ItemStatusInProgress},
		{StepStatusCompleted, StepStatusInProgress, ItemStatusInProgress},
		{StepStatusCompleted, StepStatusCompleted, ItemStatusCompleted},
		{StepStatusCompleted, StepStatusSkipped, ItemStatusCompleted},
		{StepStatusCompleted, StepStatusFailed, ItemStatusFailed},
		{StepStatusSkipped, StepStatusCompleted, ItemStatusCompleted},
		{StepStatusSkipped, StepStatusFailed, ItemStatusFailed},
	}

	for _, tt := range tests {
		got := DeriveItemStatus(tt.modify, tt.reAdvertise)
		assert.Equal(t, tt.want, got, "modify=%s reAdvertise=%s", tt.modify, tt.reAdvertise)
	}
}

func TestNewBatchItem_SkipsReAdvertiseWhenNotWanted(t *testing.T) {
	it := NewBatchItem("batch-1", "offer-1", false)
	assert.Equal(t, StepStatusSkipped, it.ReAdvertiseStatus)
	assert.Equal(t, StepStatusPending, it.ModifyStatus)
	assert.Equal(t, ItemStatusPending, it.Status)
}

func TestModifyLifecycle(t *testing.T) {
	it := NewBatchItem("batch-1", "offer-1", true)

	require.NoError(t, it.StartModify())
	assert.Equal(t, ItemStatusInProgress, it.Status)
	assert.Equal(t, StepModify, it.CurrentStep)
	require.NotNil(t, it.ModifyStartedAt)

	it.CompleteModify()
	assert.Equal(t, StepStatusCompleted, it.ModifyStatus)
	assert.Equal(t, ItemStatusInProgress, it.Status) // re-advertise still pending
	require.NotNil(t, it.ModifyCompletedAt)

	// A completed sub-step never starts again.
	assert.Error(t, it.StartModify())
}

func TestModifyFailure_RecordsMessage(t *testing.T) {
	it := NewBatchItem("batch-1", "offer-1", true)
	require.NoError(t, it.StartModify())

	it.FailModify(errors.New("listing portal rejected the update"))
	assert.Equal(t, StepStatusFailed, it.ModifyStatus)
	assert.Equal(t, ItemStatusFailed, it.Status)
	assert.Contains(t, it.ErrorMessage, "listing portal rejected")
}

func TestReAdvertiseGatedOnModify(t *testing.T) {
	it := NewBatchItem("batch-1", "offer-1", true)

	// Cannot re-advertise while modify has not finished.
	assert.Error(t, it.StartReAdvertise())

	require.NoError(t, it.StartModify())
	assert.Error(t, it.StartReAdvertise())

	it.CompleteModify()
	require.NoError(t, it.StartReAdvertise())
	assert.Equal(t, StepReAdvertise, it.CurrentStep)

	it.CompleteReAdvertise()
	assert.Equal(t, ItemStatusCompleted, it.Status)
	assert.Empty(t, it.CurrentStep)
}

func TestReAdvertiseFailure_ModifyOutcomeSurvives(t *testing.T) {
	it := NewBatchItem("batch-1", "offer-1", true)
	require.NoError(t, it.StartModify())
	it.CompleteModify()
	require.NoError(t, it.StartReAdvertise())

	it.FailReAdvertise(errors.New("withdraw timed out"))
	assert.Equal(t, ItemStatusFailed, it.Status)
	assert.Equal(t, StepStatusCompleted, it.ModifyStatus)
}

func TestResetForRetry_AutomaticCounting(t *testing.T) {
	it := NewBatchItem("batch-1", "offer-1", true)
	require.NoError(t, it.StartModify())
	it.FailModify(errors.New("boom"))

	require.NoError(t, it.ResetModifyForRetry())
	assert.Equal(t, 1, it.RetryCount)
	assert.Equal(t, StepStatusPending, it.ModifyStatus)
	assert.Equal(t, ItemStatusPending, it.Status)

	// Only a failed sub-step can be reset.
	assert.Error(t, it.ResetModifyForRetry())
}

func TestResetForRetry_OperatorClearsEverything(t *testing.T) {
	it := NewBatchItem("batch-1", "offer-1", true)
	require.NoError(t, it.StartModify())
	it.CompleteModify()
	require.NoError(t, it.StartReAdvertise())
	it.FailReAdvertise(errors.New("portal down"))
	it.RetryCount = 3

	require.NoError(t, it.ResetForRetry())
	assert.Equal(t, 0, it.RetryCount)
	assert.Empty(t, it.ErrorMessage)
	assert.Equal(t, StepStatusCompleted, it.ModifyStatus) // completed work is kept
	assert.Equal(t, StepStatusPending, it.ReAdvertiseStatus)
	assert.Equal(t, ItemStatusInProgress, it.Status)
}

func TestResetForRetry_OnlyFailedItems(t *testing.T) {
	it := NewBatchItem("batch-1", "offer-1", false)
	require.NoError(t, it.StartModify())
	it.CompleteModify()
	require.Equal(t, ItemStatusCompleted, it.Status)

	assert.Error(t, it.ResetForRetry())
}
