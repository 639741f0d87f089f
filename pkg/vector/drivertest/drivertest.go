// Package drivertest holds the shared behavioural specs every vector.Driver
// must pass. Driver test suites call DescribeDriver from a container node.
package drivertest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/temporal"
	"github.com/papercomputeco/recall/pkg/vector"
)

// Dimensions is the embedding size used by the shared specs.
const Dimensions = 4

// Record builds a stamped record for the shared specs.
func Record(id string, scope memory.OwnerScope, created time.Time, tags ...string) memory.Record {
	return memory.Record{
		ID:              id,
		UserID:          scope.UserID,
		ProjectID:       scope.ProjectID,
		Content:         "content of " + id,
		Tags:            append([]string{}, tags...),
		PeopleMentioned: []string{},
		Temporal:        temporal.Stamp(created),
		CreatedAt:       created.UTC(),
		UpdatedAt:       created.UTC(),
	}
}

// DescribeDriver registers the shared specs. newDriver is called before each
// spec and must return an empty driver; it is closed after the spec.
func DescribeDriver(newDriver func() vector.Driver) {
	var (
		ctx    context.Context
		driver vector.Driver
		alice  = memory.OwnerScope{UserID: "alice", ProjectID: "p1"}
		bob    = memory.OwnerScope{UserID: "bob", ProjectID: "p1"}
		// Sunday afternoon, then Wednesday morning.
		sunday    = time.Date(2024, time.March, 10, 13, 0, 0, 0, time.UTC)
		wednesday = time.Date(2024, time.March, 13, 9, 30, 0, 0, time.UTC)
	)

	insert := func(id string, scope memory.OwnerScope, created time.Time, emb []float32, tags ...string) {
		Expect(driver.Insert(ctx, vector.Document{
			ID:        id,
			Embedding: emb,
			Payload:   Record(id, scope, created, tags...),
		})).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()

		insert("a-sun", alice, sunday, []float32{1, 0, 0, 0}, "hiking", "outdoors")
		insert("a-wed", alice, wednesday, []float32{0, 1, 0, 0}, "work")
		insert("b-sun", bob, sunday, []float32{1, 0, 0, 0}, "hiking")
	})

	AfterEach(func() {
		if driver == nil {
			return
		}
		Expect(driver.Close()).To(Succeed())
		driver = nil
	})

	It("ranks search results by cosine similarity", func() {
		results, err := driver.Search(ctx, []float32{1, 0.1, 0, 0}, vector.ScopeFilter(alice), 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].ID).To(Equal("a-sun"))
		Expect(results[0].Score).To(BeNumerically("~", 0.995, 0.001))
		Expect(results[1].Score).To(BeNumerically("<", results[0].Score))
	})

	It("round-trips the payload", func() {
		doc, err := driver.Get(ctx, "a-sun")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Payload.Content).To(Equal("content of a-sun"))
		Expect(doc.Payload.Tags).To(ConsistOf("hiking", "outdoors"))
		Expect(doc.Payload.Temporal).To(Equal(temporal.Stamp(sunday)))
		Expect(doc.Payload.CreatedAt.Equal(sunday)).To(BeTrue())
		Expect(doc.Embedding).To(HaveLen(Dimensions))
	})

	It("reports a missing document", func() {
		_, err := driver.Get(ctx, "missing")
		Expect(err).To(MatchError(vector.ErrNotFound))
	})

	It("isolates owners in the nearest-neighbour lookup", func() {
		results, err := driver.Nearest(ctx, []float32{1, 0, 0, 0}, bob, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].ID).To(Equal("b-sun"))

		results, err = driver.Nearest(ctx, []float32{1, 0, 0, 0}, memory.OwnerScope{UserID: "alice"}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("lists newest first under a filter", func() {
		docs, err := driver.List(ctx, vector.ScopeFilter(alice), 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(2))
		Expect(docs[0].ID).To(Equal("a-wed"))
		Expect(docs[1].ID).To(Equal("a-sun"))

		docs, err = driver.List(ctx, vector.ScopeFilter(alice), 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
	})

	DescribeTable("applies structured predicates",
		func(pred vector.Filter, want []string) {
			docs, err := driver.List(ctx, vector.And(vector.ScopeFilter(alice), pred), 10)
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, len(docs))
			for i, d := range docs {
				ids[i] = d.ID
			}
			Expect(ids).To(ConsistOf(want))
		},
		Entry("weekend", vector.Eq(vector.FieldIsWeekend, true), []string{"a-sun"}),
		Entry("weekday", vector.Eq(vector.FieldIsWeekend, false), []string{"a-wed"}),
		Entry("day name", vector.Eq(vector.FieldDayOfWeek, "wednesday"), []string{"a-wed"}),
		Entry("quarter", vector.Eq(vector.FieldQuarter, 1), []string{"a-sun", "a-wed"}),
		Entry("afternoon", vector.Range(vector.FieldHour, 12, 17), []string{"a-sun"}),
		Entry("created range", vector.Range(vector.FieldCreatedAt, wednesday.Add(-time.Hour).Unix(), wednesday.Add(time.Hour).Unix()), []string{"a-wed"}),
		Entry("any tag", vector.AnyOf(vector.FieldTags, "work", "outdoors"), []string{"a-sun", "a-wed"}),
		Entry("all tags", vector.AllOf(vector.FieldTags, "hiking", "outdoors"), []string{"a-sun"}),
		Entry("all tags missing one", vector.AllOf(vector.FieldTags, "hiking", "work"), []string{}),
		Entry("topic absent", vector.Eq(vector.FieldTopic, "travel"), []string{}),
	)

	It("updates the payload and keeps the embedding", func() {
		doc, err := driver.Get(ctx, "a-wed")
		Expect(err).NotTo(HaveOccurred())

		payload := doc.Payload
		payload.Tags = []string{"meetings", "work"}
		payload.TopicCategory = "office"
		Expect(driver.UpdatePayload(ctx, "a-wed", payload)).To(Succeed())

		docs, err := driver.List(ctx, vector.And(vector.ScopeFilter(alice), vector.Eq(vector.FieldTopic, "office")), 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		Expect(docs[0].Payload.Tags).To(ConsistOf("meetings", "work"))
		Expect(docs[0].Embedding).To(Equal([]float32{0, 1, 0, 0}))
	})

	It("deletes documents", func() {
		deleted, err := driver.Delete(ctx, "a-sun")
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(BeTrue())

		deleted, err = driver.Delete(ctx, "a-sun")
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(BeFalse())

		_, err = driver.Get(ctx, "a-sun")
		Expect(err).To(MatchError(vector.ErrNotFound))
	})
}
