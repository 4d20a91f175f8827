package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usecase "github.com/tigerroll/relist/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/relist/pkg/batch/core/config"
	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/relist/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/relist/pkg/batch/core/metrics"
	executor "github.com/tigerroll/relist/pkg/batch/engine/executor"
	retry "github.com/tigerroll/relist/pkg/batch/engine/retry"
	inmemory "github.com/tigerroll/relist/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
)

// scriptedClient fails the operations whose offer IDs appear in failures
// until the corresponding entry is cleared.
type scriptedClient struct {
	failures map[string]error
}

func (c *scriptedClient) Modify(ctx context.Context, item *model.BatchItem) error {
	if err, ok := c.failures[item.OfferID]; ok {
		return err
	}
	return nil
}

func (c *scriptedClient) ReAdvertise(ctx context.Context, item *model.BatchItem) error {
	return nil
}

func newService(repo repository.Repository, client *scriptedClient) usecase.BatchService {
	exec := executor.NewBatchExecutor(
		repo, client,
		retry.NewExponentialPolicy(config.RetryConfig{MaxAttempts: 1, InitialInterval: 1, MaxInterval: 1}),
		metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer(), nil,
	)
	return usecase.NewBatchService(repo, exec)
}

func TestCreateBatch_Validation(t *testing.T) {
	s := newService(inmemory.NewRepository(), &scriptedClient{})
	ctx := context.Background()

	_, err := s.CreateBatch(ctx, "  ", nil, nil)
	assert.Error(t, err)

	_, err = s.CreateBatch(ctx, "spring-campaign", []usecase.ItemSpec{{OfferID: ""}}, nil)
	assert.Error(t, err)
}

func TestCreateBatch_PendingWithoutSchedule(t *testing.T) {
	repo := inmemory.NewRepository()
	s := newService(repo, &scriptedClient{})
	ctx := context.Background()

	price := int64(248000)
	batch, err := s.CreateBatch(ctx, "spring-campaign", []usecase.ItemSpec{
		{OfferID: "offer-1", ListingTitle: "2LDK Shinjuku", ShouldReAdvertise: true, ModifiedPrice: &price},
		{OfferID: "offer-2"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, model.BatchStatusPending, batch.Status)
	assert.Equal(t, 2, batch.TotalCount)

	items, err := repo.ListItems(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "2LDK Shinjuku", items[0].ListingTitle)
	require.NotNil(t, items[0].ModifiedPrice)
	assert.Equal(t, price, *items[0].ModifiedPrice)
}

func TestCreateBatch_ScheduledWithTimestamp(t *testing.T) {
	s := newService(inmemory.NewRepository(), &scriptedClient{})

	at := time.Now().Add(time.Hour)
	batch, err := s.CreateBatch(context.Background(), "overnight", []usecase.ItemSpec{{OfferID: "offer-1"}}, &at)
	require.NoError(t, err)

	assert.Equal(t, model.BatchStatusScheduled, batch.Status)
	require.NotNil(t, batch.ScheduledAt)
}

func TestExecuteNow_RunsPendingBatchToCompletion(t *testing.T) {
	repo := inmemory.NewRepository()
	s := newService(repo, &scriptedClient{})
	ctx := context.Background()

	batch, err := s.CreateBatch(ctx, "immediate", []usecase.ItemSpec{{OfferID: "offer-1"}}, nil)
	require.NoError(t, err)

	require.NoError(t, s.ExecuteNow(ctx, batch.ID))

	stored, err := repo.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.CompletedCount)
}

func TestExecuteNow_LosesClaimRace(t *testing.T) {
	repo := inmemory.NewRepository()
	s := newService(repo, &scriptedClient{})
	ctx := context.Background()

	at := time.Now().Add(time.Hour)
	batch, err := s.CreateBatch(ctx, "contested", []usecase.ItemSpec{{OfferID: "offer-1"}}, &at)
	require.NoError(t, err)

	// The timer trigger got there first.
	claimed, err := repo.ClaimBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	err = s.ExecuteNow(ctx, batch.ID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already claimed")
}

func TestExecuteNow_UnknownBatch(t *testing.T) {
	s := newService(inmemory.NewRepository(), &scriptedClient{})
	err := s.ExecuteNow(context.Background(), "no-such-batch")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrBatchNotFound))
}

func TestCancel_PendingBatch(t *testing.T) {
	repo := inmemory.NewRepository()
	s := newService(repo, &scriptedClient{})
	ctx := context.Background()

	batch, err := s.CreateBatch(ctx, "cancellable", []usecase.ItemSpec{{OfferID: "offer-1"}}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Cancel(ctx, batch.ID))

	stored, err := repo.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCancelled, stored.Status)
}

func TestCancel_FinishedBatchIsRejected(t *testing.T) {
	repo := inmemory.NewRepository()
	s := newService(repo, &scriptedClient{})
	ctx := context.Background()

	batch, err := s.CreateBatch(ctx, "done", []usecase.ItemSpec{{OfferID: "offer-1"}}, nil)
	require.NoError(t, err)
	require.NoError(t, s.ExecuteNow(ctx, batch.ID))

	assert.Error(t, s.Cancel(ctx, batch.ID))
}

func TestRetryItem_ReopensFailedBatch(t *testing.T) {
	repo := inmemory.NewRepository()
	client := &scriptedClient{failures: map[string]error{
		"offer-2": exception.NewBatchError("automation", "listing portal rejected the update", nil, false),
	}}
	s := newService(repo, client)
	ctx := context.Background()

	batch, err := s.CreateBatch(ctx, "partial", []usecase.ItemSpec{{OfferID: "offer-1"}, {OfferID: "offer-2"}}, nil)
	require.NoError(t, err)
	require.NoError(t, s.ExecuteNow(ctx, batch.ID))

	stored, err := repo.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, model.BatchStatusFailed, stored.Status)

	items, err := repo.ListItems(ctx, batch.ID)
	require.NoError(t, err)
	var failedID string
	for _, it := range items {
		if it.Status == model.ItemStatusFailed {
			failedID = it.ID
		}
	}
	require.NotEmpty(t, failedID)

	// The portal accepts the update this time.
	delete(client.failures, "offer-2")
	require.NoError(t, s.RetryItem(ctx, failedID))

	stored, err = repo.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	assert.Equal(t, 2, stored.CompletedCount)
	assert.Equal(t, 0, stored.FailedCount)
}

func TestRetryItem_RequiresFailedBatch(t *testing.T) {
	repo := inmemory.NewRepository()
	s := newService(repo, &scriptedClient{})
	ctx := context.Background()

	batch, err := s.CreateBatch(ctx, "fine", []usecase.ItemSpec{{OfferID: "offer-1"}}, nil)
	require.NoError(t, err)
	require.NoError(t, s.ExecuteNow(ctx, batch.ID))

	items, err := repo.ListItems(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Error(t, s.RetryItem(ctx, items[0].ID))
}

func TestGetBatchDetail(t *testing.T) {
	repo := inmemory.NewRepository()
	s := newService(repo, &scriptedClient{})
	ctx := context.Background()

	batch, err := s.CreateBatch(ctx, "detail", []usecase.ItemSpec{{OfferID: "offer-1"}, {OfferID: "offer-2"}}, nil)
	require.NoError(t, err)

	detail, err := s.GetBatchDetail(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, detail.Batch.ID)
	assert.Len(t, detail.Items, 2)
}

func TestDeleteBatch_TerminalOnly(t *testing.T) {
	repo := inmemory.NewRepository()
	s := newService(repo, &scriptedClient{})
	ctx := context.Background()

	batch, err := s.CreateBatch(ctx, "short-lived", []usecase.ItemSpec{{OfferID: "offer-1"}}, nil)
	require.NoError(t, err)

	// Still pending, deletion refused.
	assert.Error(t, s.DeleteBatch(ctx, batch.ID))

	require.NoError(t, s.ExecuteNow(ctx, batch.ID))
	require.NoError(t, s.DeleteBatch(ctx, batch.ID))

	_, err = repo.GetBatch(ctx, batch.ID)
	assert.True(t, errors.Is(err, repository.ErrBatchNotFound))
}
