package ledger

import "fmt"

// StorageError represents a failure of the underlying storage medium.
// The core does not retry these; the caller logs and drops the event.
type StorageError struct {
	Op    string // operation that failed ("append", "totals_since", ...)
	Cause error  // underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage error [op=%s]: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// newStorageError wraps a driver error for the given operation.
func newStorageError(op string, cause error) *StorageError {
	return &StorageError{Op: op, Cause: cause}
}
