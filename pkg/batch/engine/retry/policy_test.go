package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
)

func newTestPolicy() Policy {
	return NewExponentialPolicy(config.RetryConfig{
		MaxAttempts:         3,
		InitialInterval:     500,
		MaxInterval:         5000,
		RetryableExceptions: []string{"ErrPortalBusy"},
	})
}

func TestGetBackoffInterval_ExponentialWithCap(t *testing.T) {
	p := newTestPolicy()

	assert.Equal(t, 500*time.Millisecond, p.GetBackoffInterval(1))
	assert.Equal(t, 1000*time.Millisecond, p.GetBackoffInterval(2))
	assert.Equal(t, 2000*time.Millisecond, p.GetBackoffInterval(3))
	assert.Equal(t, 4000*time.Millisecond, p.GetBackoffInterval(4))
	// Capped from here on.
	assert.Equal(t, 5000*time.Millisecond, p.GetBackoffInterval(5))
	assert.Equal(t, 5000*time.Millisecond, p.GetBackoffInterval(10))
}

func TestShouldRetry_BatchErrorFlag(t *testing.T) {
	p := newTestPolicy()

	retryable := exception.NewBatchError("automation", "request failed", errors.New("connection refused"), true)
	assert.True(t, p.ShouldRetry(retryable))

	permanent := exception.NewBatchError("automation", "rejected", nil, false)
	assert.False(t, p.ShouldRetry(permanent))
}

func TestShouldRetry_RegisteredExceptionNames(t *testing.T) {
	errPortalBusy := errors.New("portal busy")
	exception.RegisterErrorType("ErrPortalBusy", errPortalBusy)

	p := newTestPolicy()
	assert.True(t, p.ShouldRetry(errPortalBusy))
	assert.False(t, p.ShouldRetry(errors.New("some business rejection")))
}

func TestShouldRetry_TransientInfrastructureErrors(t *testing.T) {
	p := newTestPolicy()
	assert.True(t, p.ShouldRetry(context.DeadlineExceeded))
	assert.False(t, p.ShouldRetry(nil))
}

func TestNewExponentialPolicy_Defaults(t *testing.T) {
	p := NewExponentialPolicy(config.RetryConfig{MaxAttempts: 2})
	assert.Equal(t, 2, p.GetMaxAttempts())
	assert.Equal(t, 500*time.Millisecond, p.GetBackoffInterval(1))
	// Max below initial is lifted to initial.
	assert.Equal(t, 500*time.Millisecond, p.GetBackoffInterval(5))
}
