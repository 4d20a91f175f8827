// Package metrics provides the Prometheus-backed MetricRecorder.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	coremetrics "github.com/tigerroll/relist/pkg/batch/core/metrics"
)

// PrometheusRecorder implements metrics.MetricRecorder on a private registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	batchDuration *prometheus.HistogramVec
	stepDuration  *prometheus.HistogramVec
	itemOutcomes  *prometheus.CounterVec
	retries       *prometheus.CounterVec
	claims        *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder with all collectors registered.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &PrometheusRecorder{
		registry: registry,
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relist",
			Name:      "batch_duration_seconds",
			Help:      "Duration of batch executions by terminal status.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relist",
			Name:      "step_duration_seconds",
			Help:      "Duration of sub-step attempts by step and outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"step", "status"}),
		itemOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relist",
			Name:      "items_total",
			Help:      "Item outcomes by batch terminal status.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relist",
			Name:      "step_retries_total",
			Help:      "Automatic sub-step retries by step.",
		}, []string{"step"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relist",
			Name:      "batch_claims_total",
			Help:      "Batch claim attempts by result.",
		}, []string{"result"}),
	}
	registry.MustRegister(r.batchDuration, r.stepDuration, r.itemOutcomes, r.retries, r.claims)
	return r
}

var _ coremetrics.MetricRecorder = (*PrometheusRecorder)(nil)

func (r *PrometheusRecorder) RecordBatch(batch *model.Batch, duration time.Duration) {
	r.batchDuration.WithLabelValues(batch.Status.String()).Observe(duration.Seconds())
	r.itemOutcomes.WithLabelValues("completed").Add(float64(batch.CompletedCount))
	r.itemOutcomes.WithLabelValues("failed").Add(float64(batch.FailedCount))
}

func (r *PrometheusRecorder) RecordStep(step string, status model.StepStatus, duration time.Duration) {
	r.stepDuration.WithLabelValues(step, status.String()).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) RecordRetry(step string) {
	r.retries.WithLabelValues(step).Inc()
}

func (r *PrometheusRecorder) RecordClaim(won bool) {
	result := "lost"
	if won {
		result = "won"
	}
	r.claims.WithLabelValues(result).Inc()
}

// Handler returns the scrape endpoint handler for this recorder's registry.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
