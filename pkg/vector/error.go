package vector

import "errors"

var (
	// ErrNotFound is returned when a document is not found in the vector store.
	ErrNotFound = errors.New("document not found")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrUnsupportedFilter is returned when a driver cannot compile a filter.
	ErrUnsupportedFilter = errors.New("unsupported filter")
)
