// Package exception provides the custom error type and classification utilities
// used by the relist batch engine. Errors carry the module they originated in
// and a retryable flag that the retry policy consults.
package exception

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"runtime"
	"strings"
	"sync"
)

// errorRegistry maps error type names to concrete Go error instances.
// It holds error instances (singletons) for comparison using errors.Is.
var errorRegistry = make(map[string]error)

// registryMutex protects access to errorRegistry.
var registryMutex sync.RWMutex

// RegisterErrorType registers an error type in the registry.
// Registered errors can be matched by name through IsErrorOfType, which is how
// retryable error classes are configured.
//
// Panics if prototype is nil or name is empty.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}

	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered checks if the specified error type name is registered.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// BatchError is the error type raised during batch processing. It holds the
// module where the error occurred, a message, the wrapped original error, and
// a flag indicating whether the failed operation is retryable.
type BatchError struct {
	// Module indicates the module where the error occurred (e.g., "executor", "scheduler", "repository").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether the failed operation may be re-attempted.
	isRetryable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
func NewBatchError(module, message string, originalErr error, isRetryable bool) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		StackTrace:  string(buf[:n]),
	}
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the wrapped original error.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable reports whether the failed operation may be re-attempted.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsErrorOfType checks if an error matches a specified type name.
// It checks in order: registered sentinel errors (errors.Is), then substring
// of the error message across the whole unwrap chain.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	targetError, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()

	if ok && errors.Is(err, targetError) {
		return true
	}

	currentErr := err
	for currentErr != nil {
		if strings.Contains(currentErr.Error(), errorTypeName) {
			return true
		}
		currentErr = errors.Unwrap(currentErr)
	}

	return false
}

// IsTransient reports whether an error looks like a transient infrastructure
// failure (timeouts, connection resets) rather than a definite negative result.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if be, ok := err.(*BatchError); ok {
		return be.IsRetryable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// ErrOptimisticLockingFailure is a sentinel error indicating that a conditional
// update matched no rows because another writer got there first.
var ErrOptimisticLockingFailure = errors.New("optimistic locking failure")

// NewOptimisticLockingFailure wraps ErrOptimisticLockingFailure with context.
func NewOptimisticLockingFailure(module, message string) error {
	return fmt.Errorf("[%s] %s: %w", module, message, ErrOptimisticLockingFailure)
}

// IsOptimisticLockingFailure determines if an error indicates an optimistic locking failure.
func IsOptimisticLockingFailure(err error) bool {
	return err != nil && errors.Is(err, ErrOptimisticLockingFailure)
}

func init() {
	RegisterErrorType("OptimisticLockingFailure", ErrOptimisticLockingFailure)

	// Common error names referenced in retryable_exceptions configuration.
	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
	RegisterErrorType("sql.ErrNoRows", sql.ErrNoRows)
}

// ExtractErrorMessage extracts the error message string from an error.
// For BatchError it returns the cleaner Message field.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if be, ok := err.(*BatchError); ok {
		return be.Message
	}
	return err.Error()
}
