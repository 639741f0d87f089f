package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMetadata is returned when a memory's content is empty or
	// whitespace-only. Auxiliary metadata never produces this error.
	ErrInvalidMetadata = errors.New("invalid metadata: content is required")

	// ErrEmbeddingUnavailable is returned when the embedding provider fails.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrMissingOwner is returned when a call carries no owner scope.
	ErrMissingOwner = errors.New("owner scope requires a user id")

	// ErrNotFound is returned when a memory does not exist within the
	// caller's owner scope.
	ErrNotFound = errors.New("memory not found")
)

// StorageError wraps a vector store failure. The original cause is
// preserved for errors.Is / errors.As.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err, or returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
