package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer *fakeWriter
		pub    *Publisher
		event  *eventstream.MemoryEvent
	)

	BeforeEach(func() {
		writer = &fakeWriter{}
		pub = newPublisher(writer, DefaultTopic, logger.Nop())
		now := time.Date(2024, time.March, 10, 13, 0, 0, 0, time.UTC)
		event = eventstream.NewMemoryEvent(eventstream.EventTypeMemoryAdded, memory.Record{
			ID:        "m1",
			UserID:    "u1",
			ProjectID: "p1",
			Content:   "hello",
			CreatedAt: now,
		}, now)
	})

	It("requires brokers", func() {
		_, err := NewPublisher(Config{}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("brokers are required")))
	})

	It("creates a writer without connecting", func() {
		p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p.topic).To(Equal(DefaultTopic))
	})

	It("rejects nil events", func() {
		Expect(pub.PublishMemory(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("writes a JSON message keyed by owner scope", func() {
		Expect(pub.PublishMemory(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("u1/p1"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte("recall.memory.added")}))

		var decoded eventstream.MemoryEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.MemoryID).To(Equal("m1"))
		Expect(decoded.Memory.Content).To(Equal("hello"))
	})

	It("wraps writer errors", func() {
		writer.err = errors.New("broker down")
		err := pub.PublishMemory(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
