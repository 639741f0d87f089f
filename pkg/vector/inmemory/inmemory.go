// Package inmemory provides an in-process implementation of vector.Driver.
//
// Documents live in a map guarded by a RWMutex. Search is brute force: every
// document in the filter is scored by cosine similarity. This is the local-dev
// and test story; persistent backends live in the sibling packages.
package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
)

// Driver implements vector.Driver using in-process data structures.
type Driver struct {
	logger *slog.Logger

	mu sync.RWMutex

	// docs maps document id -> stored document.
	docs map[string]vector.Document
}

// NewDriver creates an empty in-memory vector driver.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		logger: logger,
		docs:   make(map[string]vector.Document),
	}
}

// Insert stores a document. An existing document with the same id is replaced.
func (d *Driver) Insert(_ context.Context, doc vector.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.docs[doc.ID] = copyDocument(doc)
	return nil
}

// Search scores every document that passes the filter and returns the top
// limit by descending similarity. Ties keep newest first.
func (d *Driver) Search(_ context.Context, embedding []float32, filter vector.Filter, limit int) ([]vector.QueryResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	results := make([]vector.QueryResult, 0, len(d.docs))
	for _, doc := range d.docs {
		if !vector.Match(filter, doc.Payload) {
			continue
		}
		results = append(results, vector.QueryResult{
			Document: copyDocument(doc),
			Score:    vector.CosineSimilarity(embedding, doc.Embedding),
		})
	}
	d.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return newer(results[i].Payload, results[j].Payload)
	})

	return truncate(results, limit), nil
}

// List returns documents passing the filter, newest first.
func (d *Driver) List(_ context.Context, filter vector.Filter, limit int) ([]vector.Document, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	docs := make([]vector.Document, 0, len(d.docs))
	for _, doc := range d.docs {
		if vector.Match(filter, doc.Payload) {
			docs = append(docs, copyDocument(doc))
		}
	}
	d.mu.RUnlock()

	sort.SliceStable(docs, func(i, j int) bool {
		return newer(docs[i].Payload, docs[j].Payload)
	})

	return truncate(docs, limit), nil
}

// Nearest returns the closest documents within the owner scope.
func (d *Driver) Nearest(ctx context.Context, embedding []float32, scope memory.OwnerScope, limit int) ([]vector.QueryResult, error) {
	return d.Search(ctx, embedding, vector.ScopeFilter(scope), limit)
}

// UpdatePayload replaces the payload of an existing document, keeping its
// embedding.
func (d *Driver) UpdatePayload(_ context.Context, id string, payload memory.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	doc.Payload = payload.Clone()
	d.docs[id] = doc
	return nil
}

// Get returns a document by id.
func (d *Driver) Get(_ context.Context, id string) (*vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	c := copyDocument(doc)
	return &c, nil
}

// Delete removes a document and reports whether it existed.
func (d *Driver) Delete(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.docs[id]; !ok {
		return false, nil
	}
	delete(d.docs, id)
	d.logger.Debug("deleted document", "id", id)
	return true, nil
}

// Len returns the number of stored documents.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

// copyDocument avoids callers mutating internal state.
func copyDocument(doc vector.Document) vector.Document {
	return vector.Document{
		ID:        doc.ID,
		Embedding: slices.Clone(doc.Embedding),
		Payload:   doc.Payload.Clone(),
	}
}

func newer(a, b memory.Record) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
