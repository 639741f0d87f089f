// Package vector provides the vector store contract used by the memory engine
// and the filter language every store implementation compiles.
package vector

import (
	"context"

	"github.com/papercomputeco/recall/pkg/memory"
)

// Document is a stored memory with its embedding.
type Document struct {
	// ID is the memory id.
	ID string

	// Embedding is the vector representation of the memory content.
	// Drivers may leave it empty on reads.
	Embedding []float32

	// Payload is the JSON-serializable projection of the memory record.
	Payload memory.Record
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score is the cosine similarity between the query and the document,
	// in [-1, 1]. Higher is more similar.
	Score float64
}

// Driver handles storage and retrieval of memories and their embeddings.
type Driver interface {
	// Insert stores a document. Inserting an existing ID replaces it.
	Insert(ctx context.Context, doc Document) error

	// Search returns up to limit documents matching filter, ranked by
	// similarity to embedding (most similar first).
	Search(ctx context.Context, embedding []float32, filter Filter, limit int) ([]QueryResult, error)

	// List returns up to limit documents matching filter, newest first.
	List(ctx context.Context, filter Filter, limit int) ([]Document, error)

	// Nearest returns the limit most similar documents owned by scope.
	Nearest(ctx context.Context, embedding []float32, scope memory.OwnerScope, limit int) ([]QueryResult, error)

	// UpdatePayload replaces the stored payload of an existing document
	// without touching its embedding. Returns ErrNotFound when id is unknown.
	UpdatePayload(ctx context.Context, id string, payload memory.Record) error

	// Get retrieves a document by ID. Returns ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*Document, error)

	// Delete removes a document, reporting whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Close releases any resources held by the driver.
	Close() error
}
