package testutils

import (
	"context"
	"errors"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/vector/inmemory"
)

// ErrMockStore is returned by MockVectorDriver when a Fail* flag is set.
var ErrMockStore = errors.New("mock vector store failure")

// MockVectorDriver is a test vector driver backed by the in-memory driver.
// Fail* flags force errors and NearestResults overrides the duplicate lookup
// so tests can pin exact similarity values.
type MockVectorDriver struct {
	*inmemory.Driver

	// NearestResults, when non-nil, is returned by Nearest verbatim.
	NearestResults []vector.QueryResult

	FailInsert  bool
	FailSearch  bool
	FailList    bool
	FailNearest bool
	FailUpdate  bool
	FailGet     bool
	FailDelete  bool

	// Updated records every payload passed to UpdatePayload.
	Updated []memory.Record

	// LastFilter is the filter passed to the most recent Search or List.
	LastFilter vector.Filter
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Driver: inmemory.NewDriver(nil),
	}
}

func (m *MockVectorDriver) Insert(ctx context.Context, doc vector.Document) error {
	if m.FailInsert {
		return ErrMockStore
	}
	return m.Driver.Insert(ctx, doc)
}

func (m *MockVectorDriver) Search(ctx context.Context, embedding []float32, filter vector.Filter, limit int) ([]vector.QueryResult, error) {
	m.LastFilter = filter
	if m.FailSearch {
		return nil, ErrMockStore
	}
	return m.Driver.Search(ctx, embedding, filter, limit)
}

func (m *MockVectorDriver) List(ctx context.Context, filter vector.Filter, limit int) ([]vector.Document, error) {
	m.LastFilter = filter
	if m.FailList {
		return nil, ErrMockStore
	}
	return m.Driver.List(ctx, filter, limit)
}

func (m *MockVectorDriver) Nearest(ctx context.Context, embedding []float32, scope memory.OwnerScope, limit int) ([]vector.QueryResult, error) {
	if m.FailNearest {
		return nil, ErrMockStore
	}
	if m.NearestResults != nil {
		if len(m.NearestResults) > limit {
			return m.NearestResults[:limit], nil
		}
		return m.NearestResults, nil
	}
	return m.Driver.Nearest(ctx, embedding, scope, limit)
}

func (m *MockVectorDriver) UpdatePayload(ctx context.Context, id string, payload memory.Record) error {
	if m.FailUpdate {
		return ErrMockStore
	}
	m.Updated = append(m.Updated, payload.Clone())
	return m.Driver.UpdatePayload(ctx, id, payload)
}

func (m *MockVectorDriver) Get(ctx context.Context, id string) (*vector.Document, error) {
	if m.FailGet {
		return nil, ErrMockStore
	}
	return m.Driver.Get(ctx, id)
}

func (m *MockVectorDriver) Delete(ctx context.Context, id string) (bool, error) {
	if m.FailDelete {
		return false, ErrMockStore
	}
	return m.Driver.Delete(ctx, id)
}
