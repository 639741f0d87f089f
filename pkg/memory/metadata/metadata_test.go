package metadata_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/metadata"
)

var _ = Describe("Validator", func() {
	var v *metadata.Validator

	BeforeEach(func() {
		v = metadata.NewValidator(metadata.DefaultLimits())
	})

	Describe("Validate", func() {
		It("rejects empty content", func() {
			_, err := v.Validate(metadata.Input{Content: ""})
			Expect(err).To(MatchError(memory.ErrInvalidMetadata))
		})

		It("rejects whitespace-only content", func() {
			_, err := v.Validate(metadata.Input{Content: "  \n\t "})
			Expect(err).To(MatchError(memory.ErrInvalidMetadata))
		})

		It("keeps content untouched", func() {
			out, err := v.Validate(metadata.Input{Content: "  Lunch with Sam "})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Content).To(Equal("  Lunch with Sam "))
		})

		It("normalizes tags, people and topic", func() {
			out, err := v.Validate(metadata.Input{
				Content:         "Lunch with Sam",
				Tags:            []string{"Food, friends", " FOOD"},
				PeopleMentioned: []string{"Sam"},
				TopicCategory:   "  Social ",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Tags).To(Equal([]string{"food", "friends"}))
			Expect(out.PeopleMentioned).To(Equal([]string{"sam"}))
			Expect(out.TopicCategory).To(Equal("social"))
		})

		It("does not fail on oversized metadata", func() {
			out, err := v.Validate(metadata.Input{
				Content:       "ok",
				Tags:          []string{strings.Repeat("x", 65), "fine"},
				TopicCategory: strings.Repeat("t", 65),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Tags).To(Equal([]string{"fine"}))
			Expect(out.TopicCategory).To(BeEmpty())
		})
	})

	Describe("Normalize", func() {
		It("collapses case and whitespace duplicates", func() {
			Expect(v.ParseList("A,a, A")).To(Equal([]string{"a"}))
		})

		It("drops empty segments", func() {
			Expect(v.ParseList(",, ,x,")).To(Equal([]string{"x"}))
		})

		It("returns an empty, non-nil set for no input", func() {
			out := v.Normalize(nil)
			Expect(out).NotTo(BeNil())
			Expect(out).To(BeEmpty())
		})

		It("is idempotent", func() {
			once := v.Normalize([]string{"Work, travel", "TRAVEL", " home "})
			Expect(v.Normalize(once)).To(Equal(once))
		})

		It("caps the number of items", func() {
			small := metadata.NewValidator(metadata.Limits{MaxItems: 2, MaxItemLength: 64})
			Expect(small.ParseList("c,b,a,d")).To(HaveLen(2))
		})

		It("measures item length in characters", func() {
			small := metadata.NewValidator(metadata.Limits{MaxItems: 5, MaxItemLength: 3})
			Expect(small.ParseList("äöü,abcd")).To(Equal([]string{"äöü"}))
		})

		It("falls back to defaults for non-positive limits", func() {
			Expect(metadata.NewValidator(metadata.Limits{}).Limits()).To(Equal(metadata.DefaultLimits()))
		})
	})

	Describe("NormalizeQuery", func() {
		It("normalizes like stored metadata", func() {
			Expect(metadata.NormalizeQuery([]string{"Work, travel", " WORK"})).To(Equal([]string{"travel", "work"}))
			Expect(metadata.NormalizeQueryTopic(" Travel ")).To(Equal("travel"))
		})

		It("applies no count or length limit", func() {
			long := strings.Repeat("x", metadata.DefaultMaxItemLength+1)
			Expect(metadata.NormalizeQuery([]string{long})).To(Equal([]string{long}))
			Expect(metadata.NormalizeQueryTopic(long)).To(Equal(long))

			many := make([]string, 0, metadata.DefaultMaxItems+5)
			for i := range metadata.DefaultMaxItems + 5 {
				many = append(many, fmt.Sprintf("t%02d", i))
			}
			Expect(metadata.NormalizeQuery(many)).To(HaveLen(metadata.DefaultMaxItems + 5))
		})

		It("returns an empty, non-nil set for no input", func() {
			out := metadata.NormalizeQuery(nil)
			Expect(out).NotTo(BeNil())
			Expect(out).To(BeEmpty())
		})
	})

	Describe("Union", func() {
		It("merges two sets", func() {
			Expect(metadata.Union([]string{"a"}, []string{"b", "a"})).To(Equal([]string{"a", "b"}))
		})
	})

	Describe("Intersect", func() {
		It("keeps requested values present on the record", func() {
			Expect(metadata.Intersect([]string{"b", "z"}, []string{"a", "b"})).To(Equal([]string{"b"}))
		})
	})
})
