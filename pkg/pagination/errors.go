package pagination

import (
	"errors"
	"fmt"
)

var (
	// ErrRetryExhausted is returned when every retry attempt for a page failed.
	// The returned error also wraps the last transient failure.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during a
	// retry backoff.
	ErrContextCancelled = errors.New("context cancelled during retry")

	// ErrInvalidLimit is returned for a negative Spec.Limit.
	ErrInvalidLimit = errors.New("limit must be positive")
)

// ResultWindowExceededError ends a fetch without a limit once it would
// produce more than Limit entities.
type ResultWindowExceededError struct {
	Limit int
}

// Error implements the error interface.
func (e *ResultWindowExceededError) Error() string {
	return fmt.Sprintf("result window exceeded: unbounded fetch would return more than %d entities, set a limit", e.Limit)
}
