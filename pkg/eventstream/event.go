// Package eventstream carries memory lifecycle events to downstream
// consumers.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/recall/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryAdded is emitted after a new memory is stored.
	EventTypeMemoryAdded = "recall.memory.added"

	// EventTypeMemoryMerged is emitted after a duplicate's metadata was
	// folded into an existing memory.
	EventTypeMemoryMerged = "recall.memory.merged"

	// EventTypeMemoryDeleted is emitted after a memory is deleted.
	EventTypeMemoryDeleted = "recall.memory.deleted"
)

// MemoryEvent is a transport-neutral event payload for a memory change.
type MemoryEvent struct {
	SchemaVersion int               `json:"schema_version"`
	EventType     string            `json:"event_type"`
	EventID       string            `json:"event_id"`
	EmittedAt     time.Time         `json:"emitted_at"`
	Owner         memory.OwnerScope `json:"owner"`
	MemoryID      string            `json:"memory_id"`

	// Memory is the record after the change. Omitted for deletes.
	Memory *memory.Record `json:"memory,omitempty"`

	// Similarity is set on merges to the score that triggered them.
	Similarity *float64 `json:"similarity,omitempty"`
}

// NewMemoryEvent builds an event for record with a fresh event id.
func NewMemoryEvent(eventType string, record memory.Record, emittedAt time.Time) *MemoryEvent {
	ev := &MemoryEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     emittedAt.UTC(),
		Owner:         record.Scope(),
		MemoryID:      record.ID,
	}
	if eventType != EventTypeMemoryDeleted {
		r := record.Clone()
		ev.Memory = &r
	}
	return ev
}

// Key is the partition key for ordered delivery per owner.
func (e *MemoryEvent) Key() string {
	return e.Owner.String()
}
