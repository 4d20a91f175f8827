package metrics

import (
	"time"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
)

// MetricRecorder abstracts the recording of execution metrics so the engine
// does not depend on a concrete metrics backend.
type MetricRecorder interface {
	// RecordBatch records the outcome and duration of one batch execution.
	RecordBatch(batch *model.Batch, duration time.Duration)
	// RecordStep records the outcome and duration of one sub-step attempt.
	RecordStep(step string, status model.StepStatus, duration time.Duration)
	// RecordRetry records one automatic retry of a sub-step.
	RecordRetry(step string)
	// RecordClaim records a claim attempt outcome (won or lost).
	RecordClaim(won bool)
}

// NoOpMetricRecorder is the fallback MetricRecorder that discards everything.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new NoOpMetricRecorder.
func NewNoOpMetricRecorder() *NoOpMetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordBatch(batch *model.Batch, duration time.Duration) {}

func (r *NoOpMetricRecorder) RecordStep(step string, status model.StepStatus, duration time.Duration) {
}

func (r *NoOpMetricRecorder) RecordRetry(step string) {}

func (r *NoOpMetricRecorder) RecordClaim(won bool) {}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)
