package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

// MockPublisher is a test eventstream publisher that records calls and
// returns configurable results.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.MemoryEvent
	closed bool

	// Fail causes PublishMemory to return an error.
	Fail bool
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishMemory(_ context.Context, event *eventstream.MemoryEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if m.Fail {
		return errors.New("mock publish failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a snapshot of published events.
func (m *MockPublisher) Events() []*eventstream.MemoryEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.MemoryEvent(nil), m.events...)
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
