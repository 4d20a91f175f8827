package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/relist/pkg/batch/core/metrics"
	executor "github.com/tigerroll/relist/pkg/batch/engine/executor"
	retry "github.com/tigerroll/relist/pkg/batch/engine/retry"
	inmemory "github.com/tigerroll/relist/pkg/batch/infrastructure/repository/inmemory"
)

type noopClient struct{}

func (noopClient) Modify(ctx context.Context, item *model.BatchItem) error      { return nil }
func (noopClient) ReAdvertise(ctx context.Context, item *model.BatchItem) error { return nil }

func newTestScheduler(repo *inmemory.Repository, pollInterval time.Duration) *Scheduler {
	exec := executor.NewBatchExecutor(
		repo, noopClient{},
		retry.NewExponentialPolicy(config.RetryConfig{MaxAttempts: 1, InitialInterval: 1, MaxInterval: 1}),
		metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer(), nil,
	)
	return NewScheduler(repo, exec, metrics.NewNoOpMetricRecorder(), pollInterval)
}

func saveScheduled(t *testing.T, repo *inmemory.Repository, at time.Time) *model.Batch {
	t.Helper()
	batch := model.NewBatch("scheduled", &at)
	item := model.NewBatchItem(batch.ID, "offer-1", false)
	batch.TotalCount = 1
	require.NoError(t, repo.SaveBatch(context.Background(), batch, []*model.BatchItem{item}))
	return batch
}

func waitForStatus(t *testing.T, repo *inmemory.Repository, id string, want model.BatchStatus) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		batch, err := repo.GetBatch(context.Background(), id)
		require.NoError(t, err)
		if batch.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	batch, _ := repo.GetBatch(context.Background(), id)
	t.Fatalf("batch %s never reached %s (still %s)", id, want, batch.Status)
}

func TestScheduler_ExecutesDueBatch(t *testing.T) {
	repo := inmemory.NewRepository()
	batch := saveScheduled(t, repo, time.Now().Add(-time.Minute))

	s := newTestScheduler(repo, time.Hour) // only the immediate first sweep fires
	s.Start(context.Background())
	defer s.Stop()

	waitForStatus(t, repo, batch.ID, model.BatchStatusCompleted)
}

func TestScheduler_IgnoresFutureBatch(t *testing.T) {
	repo := inmemory.NewRepository()
	batch := saveScheduled(t, repo, time.Now().Add(time.Hour))

	s := newTestScheduler(repo, 10*time.Millisecond)
	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	stored, err := repo.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusScheduled, stored.Status)
}

func TestScheduler_ClaimLossIsNotAnError(t *testing.T) {
	repo := inmemory.NewRepository()
	batch := saveScheduled(t, repo, time.Now().Add(-time.Minute))

	// A manual trigger wins the claim before the sweep runs.
	claimed, err := repo.ClaimBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	s := newTestScheduler(repo, time.Hour)
	s.sweep(context.Background())

	// The sweep must not have double-dispatched: ClaimBatch on a RUNNING
	// batch yields false, so the batch is still exactly where the manual
	// trigger left it.
	stored, err := repo.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusRunning, stored.Status)
}

// gateClient blocks every Modify call until release is closed.
type gateClient struct {
	started chan string
	release chan struct{}
}

func (c *gateClient) Modify(ctx context.Context, item *model.BatchItem) error {
	c.started <- item.OfferID
	<-c.release
	return nil
}

func (c *gateClient) ReAdvertise(ctx context.Context, item *model.BatchItem) error { return nil }

func TestScheduler_StopImmediatelyAfterStart(t *testing.T) {
	repo := inmemory.NewRepository()
	s := newTestScheduler(repo, time.Hour)

	// Stop may run before the loop goroutine is even scheduled; it must
	// neither panic nor hang, on any interleaving.
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		s.Start(ctx)
		s.Stop()
	}
}

func TestScheduler_StopDrainsInFlightExecutionWithoutInterrupting(t *testing.T) {
	repo := inmemory.NewRepository()
	ctx := context.Background()

	at := time.Now().Add(-time.Minute)
	batch := model.NewBatch("draining", &at)
	items := []*model.BatchItem{
		model.NewBatchItem(batch.ID, "offer-1", false),
		model.NewBatchItem(batch.ID, "offer-2", false),
	}
	items[1].CreatedAt = items[0].CreatedAt.Add(time.Millisecond)
	batch.TotalCount = 2
	require.NoError(t, repo.SaveBatch(ctx, batch, items))

	client := &gateClient{started: make(chan string, 2), release: make(chan struct{})}
	exec := executor.NewBatchExecutor(
		repo, client,
		retry.NewExponentialPolicy(config.RetryConfig{MaxAttempts: 1, InitialInterval: 1, MaxInterval: 1}),
		metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer(), nil,
	)
	s := NewScheduler(repo, exec, metrics.NewNoOpMetricRecorder(), time.Hour)
	s.Start(ctx)

	// Stop while the first item is mid-call, then let the calls through.
	<-client.started
	stopDone := make(chan struct{})
	go func() {
		s.Stop()
		close(stopDone)
	}()
	close(client.release)

	select {
	case <-stopDone:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not drain the in-flight execution")
	}

	// The execution ran to completion instead of aborting at a checkpoint.
	stored, err := repo.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	assert.Equal(t, 2, stored.CompletedCount)
}

func TestScheduler_StartAndStopAreIdempotent(t *testing.T) {
	repo := inmemory.NewRepository()
	s := newTestScheduler(repo, time.Hour)

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx) // second Start is a no-op
	s.Stop()
	s.Stop() // second Stop is a no-op

	// Restart works after a full stop.
	s.Start(ctx)
	s.Stop()
}

func TestScheduler_RecoverInterruptedResumesRunningBatches(t *testing.T) {
	repo := inmemory.NewRepository()
	ctx := context.Background()

	// A batch left RUNNING by a crashed process.
	batch := model.NewBatch("interrupted", nil)
	item := model.NewBatchItem(batch.ID, "offer-1", false)
	batch.TotalCount = 1
	batch.MarkAsRunning()
	require.NoError(t, repo.SaveBatch(ctx, batch, []*model.BatchItem{item}))

	// A pending batch must not be touched by recovery.
	pending := model.NewBatch("pending", nil)
	require.NoError(t, repo.SaveBatch(ctx, pending, nil))

	s := newTestScheduler(repo, time.Hour)
	require.NoError(t, s.RecoverInterrupted(ctx))
	s.running.Wait()

	waitForStatus(t, repo, batch.ID, model.BatchStatusCompleted)
	stored, err := repo.GetBatch(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusPending, stored.Status)
}
