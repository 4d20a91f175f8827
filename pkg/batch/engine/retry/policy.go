package retry

import (
	"time"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
)

// Policy defines the sub-step retry logic: whether an error is retryable, how
// long to wait before the next attempt, and how many automatic retries are
// allowed per sub-step.
type Policy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// GetBackoffInterval returns the waiting time before retry number attempt
	// (starting from 1).
	GetBackoffInterval(attempt int) time.Duration
	// GetMaxAttempts returns the maximum number of automatic retries.
	GetMaxAttempts() int
}

// exponentialPolicy implements Policy with exponential backoff capped at a
// maximum interval: initial * 2^(attempt-1), never above max.
type exponentialPolicy struct {
	maxAttempts         int
	initialInterval     time.Duration
	maxInterval         time.Duration
	retryableExceptions []string
}

// NewExponentialPolicy creates the default Policy from configuration.
func NewExponentialPolicy(cfg config.RetryConfig) Policy {
	initial := time.Duration(cfg.InitialInterval) * time.Millisecond
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	max := time.Duration(cfg.MaxInterval) * time.Millisecond
	if max < initial {
		max = initial
	}
	return &exponentialPolicy{
		maxAttempts:         cfg.MaxAttempts,
		initialInterval:     initial,
		maxInterval:         max,
		retryableExceptions: cfg.RetryableExceptions,
	}
}

func (p *exponentialPolicy) GetMaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry determines if an error is retryable. BatchError carries its own
// retryable flag; other errors are matched against the configured retryable
// exception names, and transient infrastructure errors (timeouts) retry by
// default.
func (p *exponentialPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if be, ok := err.(*exception.BatchError); ok {
		return be.IsRetryable()
	}

	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}

	return exception.IsTransient(err)
}

func (p *exponentialPolicy) GetBackoffInterval(attempt int) time.Duration {
	if attempt <= 1 {
		return p.initialInterval
	}
	interval := p.initialInterval
	for i := 1; i < attempt; i++ {
		interval *= 2
		if interval >= p.maxInterval {
			return p.maxInterval
		}
	}
	return interval
}

var _ Policy = (*exponentialPolicy)(nil)
