package dedup_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
	"github.com/papercomputeco/recall/pkg/vector"
)

var _ = Describe("ParsePolicy", func() {
	DescribeTable("accepts known names",
		func(in string, want dedup.Policy) {
			p, err := dedup.ParsePolicy(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(want))
		},
		Entry("empty", "", dedup.PolicySkip),
		Entry("skip", "skip", dedup.PolicySkip),
		Entry("merge", " Merge ", dedup.PolicyMerge),
		Entry("add", "ADD", dedup.PolicyAdd),
	)

	It("rejects unknown names", func() {
		_, err := dedup.ParsePolicy("replace")
		Expect(err).To(MatchError(dedup.ErrInvalidPolicy))
	})
})

var _ = Describe("ValidateThreshold", func() {
	It("accepts the closed unit interval", func() {
		Expect(dedup.ValidateThreshold(0)).To(Succeed())
		Expect(dedup.ValidateThreshold(1)).To(Succeed())
	})

	It("rejects values outside it", func() {
		Expect(dedup.ValidateThreshold(1.01)).To(MatchError(dedup.ErrInvalidThreshold))
		Expect(dedup.ValidateThreshold(-0.1)).To(MatchError(dedup.ErrInvalidThreshold))
	})
})

var _ = Describe("Detector", func() {
	var (
		ctx      context.Context
		store    *testutils.MockVectorDriver
		detector *dedup.Detector
		scope    memory.OwnerScope
		created  time.Time
		merged   time.Time
		existing memory.Record
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = testutils.NewMockVectorDriver()
		scope = memory.OwnerScope{UserID: "u1", ProjectID: "p1"}
		created = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
		merged = created.Add(48 * time.Hour)
		detector = dedup.NewDetector(store, logger.Nop(), func() time.Time { return merged })

		existing = memory.Record{
			ID:            "existing",
			UserID:        scope.UserID,
			ProjectID:     scope.ProjectID,
			Content:       "I like tea",
			Tags:          []string{"a"},
			TopicCategory: "",
			CreatedAt:     created,
			UpdatedAt:     created,
		}
		Expect(store.Insert(ctx, vector.Document{
			ID:        existing.ID,
			Embedding: []float32{1, 0},
			Payload:   existing,
		})).To(Succeed())
	})

	pin := func(score float64) {
		store.NearestResults = []vector.QueryResult{{
			Document: vector.Document{ID: existing.ID, Payload: existing},
			Score:    score,
		}}
	}

	candidate := func() memory.Record {
		return memory.Record{
			ID:            "candidate",
			UserID:        scope.UserID,
			ProjectID:     scope.ProjectID,
			Content:       "I like tea",
			Tags:          []string{"b"},
			TopicCategory: "drinks",
			CreatedAt:     merged,
			UpdatedAt:     merged,
		}
	}

	Describe("Check", func() {
		It("treats similarity exactly at the threshold as a duplicate", func() {
			pin(0.95)
			m, err := detector.Check(ctx, []float32{1, 0}, scope, 0.95)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).NotTo(BeNil())
			Expect(m.Similarity).To(Equal(0.95))
		})

		It("does not treat similarity just below the threshold as a duplicate", func() {
			pin(0.95 - 1e-9)
			m, err := detector.Check(ctx, []float32{1, 0}, scope, 0.95)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil())
		})

		It("returns nil for an empty scope", func() {
			m, err := detector.Check(ctx, []float32{1, 0}, memory.OwnerScope{UserID: "nobody"}, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil())
		})

		It("ignores a neighbour from another scope even if the store returns one", func() {
			pin(1)
			m, err := detector.Check(ctx, []float32{1, 0}, memory.OwnerScope{UserID: "u2"}, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil())
		})

		It("wraps store failures in a storage error", func() {
			store.FailNearest = true
			_, err := detector.Check(ctx, []float32{1, 0}, scope, 0.95)
			Expect(memory.IsStorageError(err)).To(BeTrue())
			Expect(err).To(MatchError(testutils.ErrMockStore))
		})
	})

	Describe("Resolve", func() {
		It("proceeds with an add when nothing matches", func() {
			pin(0.2)
			out, err := detector.Resolve(ctx, candidate(), []float32{0, 1}, dedup.PolicySkip, 0.95)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Action).To(Equal(dedup.ActionAdded))
			Expect(out.Match).To(BeNil())
		})

		It("skips a duplicate and reports the existing record", func() {
			pin(0.99)
			out, err := detector.Resolve(ctx, candidate(), []float32{1, 0}, dedup.PolicySkip, 0.95)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Action).To(Equal(dedup.ActionSkipped))
			Expect(out.Match.Record.ID).To(Equal("existing"))
			Expect(out.Match.Similarity).To(Equal(0.99))
			Expect(store.Updated).To(BeEmpty())
		})

		It("adds anyway under the add policy", func() {
			pin(0.99)
			out, err := detector.Resolve(ctx, candidate(), []float32{1, 0}, dedup.PolicyAdd, 0.95)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Action).To(Equal(dedup.ActionAdded))
			Expect(out.Match).NotTo(BeNil())
		})

		It("merges metadata into the existing record", func() {
			pin(0.99)
			out, err := detector.Resolve(ctx, candidate(), []float32{1, 0}, dedup.PolicyMerge, 0.95)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Action).To(Equal(dedup.ActionMerged))

			doc, err := store.Get(ctx, "existing")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Payload.Tags).To(Equal([]string{"a", "b"}))
			Expect(doc.Payload.Content).To(Equal("I like tea"))
			Expect(doc.Payload.TopicCategory).To(Equal("drinks"))
			Expect(doc.Payload.CreatedAt).To(Equal(created))
			Expect(doc.Payload.UpdatedAt).To(Equal(merged))
			Expect(doc.Embedding).To(Equal([]float32{1, 0}))
		})

		It("surfaces a failed merge write as a storage error", func() {
			pin(0.99)
			store.FailUpdate = true
			_, err := detector.Resolve(ctx, candidate(), []float32{1, 0}, dedup.PolicyMerge, 0.95)
			Expect(memory.IsStorageError(err)).To(BeTrue())
		})
	})
})

var _ = Describe("Merge", func() {
	now := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	It("keeps an existing topic", func() {
		out := dedup.Merge(
			memory.Record{TopicCategory: "work", Tags: []string{"a"}},
			memory.Record{TopicCategory: "home", Tags: []string{"a"}},
			now,
		)
		Expect(out.TopicCategory).To(Equal("work"))
		Expect(out.Tags).To(Equal([]string{"a"}))
	})

	It("unions people", func() {
		out := dedup.Merge(
			memory.Record{PeopleMentioned: []string{"bob"}},
			memory.Record{PeopleMentioned: []string{"alice", "bob"}},
			now,
		)
		Expect(out.PeopleMentioned).To(Equal([]string{"alice", "bob"}))
		Expect(out.UpdatedAt).To(Equal(now))
	})

	It("does not mutate its inputs", func() {
		existing := memory.Record{Tags: []string{"a"}}
		dedup.Merge(existing, memory.Record{Tags: []string{"b"}}, now)
		Expect(existing.Tags).To(Equal([]string{"a"}))
	})
})
