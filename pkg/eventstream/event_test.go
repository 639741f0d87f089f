package eventstream_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/memory"
)

var _ = Describe("Event", func() {
	now := time.Unix(1735689600, 0).UTC()
	record := memory.Record{
		ID:        "m1",
		UserID:    "u1",
		ProjectID: "p1",
		Content:   "hello",
		Tags:      []string{"a"},
		CreatedAt: now,
		UpdatedAt: now,
	}

	It("marshals MemoryEvent with expected top-level keys", func() {
		event := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryAdded, record, now)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("owner"))
		Expect(got).To(HaveKey("memory_id"))
		Expect(got).To(HaveKey("memory"))
		Expect(got).NotTo(HaveKey("similarity"))
	})

	It("omits the record on deletes", func() {
		event := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryDeleted, record, now)
		Expect(event.Memory).To(BeNil())
		Expect(event.MemoryID).To(Equal("m1"))
	})

	It("assigns unique event ids", func() {
		a := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryAdded, record, now)
		b := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryAdded, record, now)
		Expect(strings.HasPrefix(a.EventID, "evt_")).To(BeTrue())
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("keys events by owner scope", func() {
		event := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryAdded, record, now)
		Expect(event.Key()).To(Equal("u1/p1"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeMemoryAdded).To(Equal("recall.memory.added"))
		Expect(eventstream.EventTypeMemoryMerged).To(Equal("recall.memory.merged"))
		Expect(eventstream.EventTypeMemoryDeleted).To(Equal("recall.memory.deleted"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil memory event"))
	})
})
