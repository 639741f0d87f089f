package vector_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
)

var _ = Describe("Filter", func() {
	Describe("And", func() {
		It("is empty with no constraining children", func() {
			Expect(vector.And().IsEmpty()).To(BeTrue())
			Expect(vector.And(vector.Filter{}, vector.Filter{}).IsEmpty()).To(BeTrue())
		})

		It("unwraps a single child", func() {
			eq := vector.Eq(vector.FieldTopic, "work")
			Expect(vector.And(vector.Filter{}, eq)).To(Equal(eq))
		})

		It("flattens nested conjunctions", func() {
			f := vector.And(
				vector.And(vector.Eq(vector.FieldUserID, "u"), vector.Eq(vector.FieldProjectID, "")),
				vector.Eq(vector.FieldTopic, "work"),
			)
			Expect(f.Op).To(Equal(vector.OpAnd))
			Expect(f.Children).To(HaveLen(3))
		})
	})

	Describe("Or", func() {
		It("becomes empty when any branch is unconstrained", func() {
			Expect(vector.Or(vector.Eq(vector.FieldTopic, "a"), vector.Filter{}).IsEmpty()).To(BeTrue())
		})
	})

	Describe("Eq", func() {
		It("normalizes ints to int64", func() {
			Expect(vector.Eq(vector.FieldQuarter, 2).Value).To(Equal(int64(2)))
		})
	})

	Describe("Validate", func() {
		It("accepts well-typed nodes", func() {
			f := vector.And(
				vector.Eq(vector.FieldUserID, "u"),
				vector.AllOf(vector.FieldTags, "a"),
				vector.Range(vector.FieldHour, 5, 12),
				vector.Eq(vector.FieldIsWeekend, true),
			)
			Expect(f.Validate()).To(Succeed())
		})

		It("rejects mistyped nodes", func() {
			Expect(vector.Eq(vector.FieldQuarter, "one").Validate()).To(MatchError(vector.ErrUnsupportedFilter))
			Expect(vector.Range(vector.FieldTopic, 0, 1).Validate()).To(MatchError(vector.ErrUnsupportedFilter))
			Expect(vector.AllOf(vector.FieldTopic, "a").Validate()).To(MatchError(vector.ErrUnsupportedFilter))
		})
	})

	It("renders for logs", func() {
		f := vector.And(vector.Eq(vector.FieldUserID, "u"), vector.Range(vector.FieldHour, 5, 12))
		Expect(f.String()).To(Equal("AND(user_id == u, temporal.hour in [5, 12))"))
	})
})

var _ = Describe("Match", func() {
	created := time.Date(2024, time.March, 10, 13, 0, 0, 0, time.UTC)
	record := memory.Record{
		ID:              "m1",
		UserID:          "u1",
		ProjectID:       "p1",
		Tags:            []string{"a", "b"},
		PeopleMentioned: []string{"alice"},
		TopicCategory:   "work",
		CreatedAt:       created,
		Temporal: memory.TemporalFields{
			Hour: 13, Quarter: 1, DayOfWeek: "sunday", IsWeekend: true,
		},
	}

	DescribeTable("evaluates predicates",
		func(f vector.Filter, want bool) {
			Expect(vector.Match(f, record)).To(Equal(want))
		},
		Entry("empty", vector.Filter{}, true),
		Entry("scope", vector.ScopeFilter(memory.OwnerScope{UserID: "u1", ProjectID: "p1"}), true),
		Entry("other user", vector.ScopeFilter(memory.OwnerScope{UserID: "u2", ProjectID: "p1"}), false),
		Entry("project-less scope", vector.ScopeFilter(memory.OwnerScope{UserID: "u1"}), false),
		Entry("any of hit", vector.AnyOf(vector.FieldTags, "z", "b"), true),
		Entry("any of miss", vector.AnyOf(vector.FieldTags, "z"), false),
		Entry("all of hit", vector.AllOf(vector.FieldTags, "a", "b"), true),
		Entry("all of miss", vector.AllOf(vector.FieldTags, "a", "c"), false),
		Entry("people", vector.AnyOf(vector.FieldPeople, "alice"), true),
		Entry("topic", vector.Eq(vector.FieldTopic, "work"), true),
		Entry("weekend", vector.Eq(vector.FieldIsWeekend, true), true),
		Entry("weekday", vector.Eq(vector.FieldIsWeekend, false), false),
		Entry("quarter", vector.Eq(vector.FieldQuarter, 1), true),
		Entry("day name", vector.Eq(vector.FieldDayOfWeek, "sunday"), true),
		Entry("range lower bound inclusive", vector.Range(vector.FieldHour, 13, 17), true),
		Entry("range upper bound exclusive", vector.Range(vector.FieldHour, 5, 13), false),
		Entry("created at", vector.Range(vector.FieldCreatedAt, created.Unix(), created.Unix()+1), true),
		Entry("or", vector.Or(vector.Eq(vector.FieldTopic, "x"), vector.Eq(vector.FieldQuarter, 1)), true),
	)
})

var _ = Describe("CosineSimilarity", func() {
	It("is 1 for parallel vectors", func() {
		Expect(vector.CosineSimilarity([]float32{1, 2}, []float32{2, 4})).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("is 0 for orthogonal, mismatched or zero vectors", func() {
		Expect(vector.CosineSimilarity([]float32{1, 0}, []float32{0, 1})).To(BeNumerically("~", 0, 1e-9))
		Expect(vector.CosineSimilarity([]float32{1}, []float32{1, 0})).To(Equal(0.0))
		Expect(vector.CosineSimilarity([]float32{0, 0}, []float32{1, 0})).To(Equal(0.0))
	})
})
