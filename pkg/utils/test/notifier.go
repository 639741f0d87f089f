package testutils

import (
	"sync"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

// MockNotifier collects events synchronously, standing in for the dispatch
// pool in engine tests.
type MockNotifier struct {
	mu     sync.Mutex
	events []*eventstream.MemoryEvent
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(event *eventstream.MemoryEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return true
}

// Events returns a snapshot of received events.
func (m *MockNotifier) Events() []*eventstream.MemoryEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.MemoryEvent(nil), m.events...)
}
