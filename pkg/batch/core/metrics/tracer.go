package metrics

import (
	"context"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
)

// Tracer abstracts span creation around batch and sub-step execution. The
// engine only sees this seam; a tracing backend can be plugged in behind it.
type Tracer interface {
	// StartBatchSpan starts a span covering one batch execution. The returned
	// function finishes the span.
	StartBatchSpan(ctx context.Context, batch *model.Batch) (context.Context, func())
	// StartStepSpan starts a span covering one sub-step attempt.
	StartStepSpan(ctx context.Context, item *model.BatchItem, step string) (context.Context, func())
	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)
}

// NoOpTracer is the default Tracer implementation.
type NoOpTracer struct{}

// NewNoOpTracer creates a new NoOpTracer.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartBatchSpan(ctx context.Context, batch *model.Batch) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartStepSpan(ctx context.Context, item *model.BatchItem, step string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

var _ Tracer = (*NoOpTracer)(nil)
