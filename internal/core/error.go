/*
Package core provides the central logic for saleprobe: the row and result data model,
the sharded worker scheduler, and the runner that probes every row exactly once.
*/
package core

import "errors"

// customError is an error carrying a retryable flag.
type customError struct {
	message   string
	retryable bool
}

// NewError creates an error with the given message and retryable flag.
func NewError(msg string, retryable bool) error {
	return &customError{
		message:   msg,
		retryable: retryable,
	}
}

func (e *customError) Error() string {
	return e.message
}

func (e *customError) IsRetryable() bool {
	return e.retryable
}

// IsRetryable reports whether err wraps a retryable error created by NewError.
func IsRetryable(err error) bool {
	var e *customError
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}

var (
	// ErrQueueFull is returned by TrySubmit when every worker is busy and the
	// shared queue is full. It is retryable.
	ErrQueueFull = NewError("queue full", true)
	// ErrWorkerShutdown indicates that the scheduler no longer accepts rows.
	ErrWorkerShutdown = NewError("worker shutdown", false)
	// ErrDuplicateRow indicates that a row ID occurs more than once in a run's input.
	ErrDuplicateRow = NewError("duplicate row id", false)
	// ErrRunCancelled indicates that a run was aborted before every row was checked.
	ErrRunCancelled = NewError("run cancelled", false)
)
