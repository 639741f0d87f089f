package filter_test

import (
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/filter"
	"github.com/papercomputeco/recall/pkg/vector"
)

var _ = Describe("Build", func() {
	var (
		scope memory.OwnerScope
		now   time.Time
	)

	BeforeEach(func() {
		scope = memory.OwnerScope{UserID: "u1", ProjectID: "p1"}
		now = time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)
	})

	It("degrades to owner scope when no predicate is given", func() {
		f, ok := filter.Build(filter.Query{Scope: scope}, now)
		Expect(ok).To(BeTrue())
		Expect(f).To(Equal(vector.ScopeFilter(scope)))
	})

	It("uses any-of for tags by default and all-of when match all is set", func() {
		anyF, _ := filter.Build(filter.Query{Scope: scope, Tags: []string{"Work", "home"}}, now)
		Expect(anyF.Children).To(ContainElement(vector.AnyOf(vector.FieldTags, "home", "work")))

		allF, _ := filter.Build(filter.Query{Scope: scope, Tags: []string{"work", "home"}, MatchAll: true}, now)
		Expect(allF.Children).To(ContainElement(vector.AllOf(vector.FieldTags, "home", "work")))
	})

	It("normalizes people and topic before use", func() {
		f, _ := filter.Build(filter.Query{Scope: scope, People: []string{" Alice "}, Topic: " Travel"}, now)
		Expect(f.Children).To(ContainElements(
			vector.AnyOf(vector.FieldPeople, "alice"),
			vector.Eq(vector.FieldTopic, "travel"),
		))
	})

	It("ignores lists that normalize to nothing", func() {
		f, _ := filter.Build(filter.Query{Scope: scope, Tags: []string{" , ,"}}, now)
		Expect(f).To(Equal(vector.ScopeFilter(scope)))
	})

	It("keeps requested values that exceed the stored metadata limits", func() {
		long := strings.Repeat("x", 70)
		f, _ := filter.Build(filter.Query{Scope: scope, Tags: []string{long}, Topic: long}, now)
		Expect(f.Children).To(ContainElements(
			vector.AnyOf(vector.FieldTags, long),
			vector.Eq(vector.FieldTopic, long),
		))

		many := make([]string, 0, 25)
		for i := range 25 {
			many = append(many, fmt.Sprintf("t%02d", i))
		}
		allF, _ := filter.Build(filter.Query{Scope: scope, Tags: many, MatchAll: true}, now)
		Expect(allF.Children).To(ContainElement(vector.AllOf(vector.FieldTags, many...)))
	})

	It("adds a recognized temporal predicate", func() {
		f, ok := filter.Build(filter.Query{Scope: scope, Temporal: "weekends"}, now)
		Expect(ok).To(BeTrue())
		Expect(f.Children).To(ContainElement(vector.Eq(vector.FieldIsWeekend, true)))
	})

	It("fails open on an unrecognized temporal expression", func() {
		f, ok := filter.Build(filter.Query{Scope: scope, Temporal: "not_a_real_expression"}, now)
		Expect(ok).To(BeFalse())
		Expect(f).To(Equal(vector.ScopeFilter(scope)))
	})

	It("always keeps the owner scope predicates", func() {
		f, _ := filter.Build(filter.Query{
			Scope:    scope,
			Tags:     []string{"a"},
			People:   []string{"bob"},
			Topic:    "work",
			Temporal: "q1",
		}, now)

		Expect(f.Op).To(Equal(vector.OpAnd))
		Expect(f.Children).To(ContainElements(
			vector.Eq(vector.FieldUserID, "u1"),
			vector.Eq(vector.FieldProjectID, "p1"),
		))
		Expect(f.Validate()).To(Succeed())
	})

	It("produces a filter that matches only the owner's records", func() {
		f, _ := filter.Build(filter.Query{Scope: scope, Tags: []string{"a"}}, now)

		mine := memory.Record{UserID: "u1", ProjectID: "p1", Tags: []string{"a"}}
		other := memory.Record{UserID: "u2", ProjectID: "p1", Tags: []string{"a"}}
		noProject := memory.Record{UserID: "u1", Tags: []string{"a"}}

		Expect(vector.Match(f, mine)).To(BeTrue())
		Expect(vector.Match(f, other)).To(BeFalse())
		Expect(vector.Match(f, noProject)).To(BeFalse())
	})
})
