package cache

import (
	"errors"
	"fmt"
)

// ErrMiss is returned by Store.Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// CacheError wraps a failed store operation
type CacheError struct {
	Operation string
	Err       error
	Retryable bool
}

// NewCacheError creates a CacheError
func NewCacheError(operation string, err error, retryable bool) *CacheError {
	return &CacheError{
		Operation: operation,
		Err:       err,
		Retryable: retryable,
	}
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache operation %s failed: %v", e.Operation, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}
