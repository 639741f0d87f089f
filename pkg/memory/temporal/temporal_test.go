package temporal_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/temporal"
	"github.com/papercomputeco/recall/pkg/vector"
)

var _ = Describe("Stamp", func() {
	It("derives every field from a Sunday afternoon", func() {
		ts := time.Date(2024, time.March, 10, 13, 0, 0, 0, time.UTC)
		Expect(temporal.Stamp(ts)).To(Equal(memory.TemporalFields{
			Day:        10,
			Hour:       13,
			Minute:     0,
			Year:       2024,
			Month:      3,
			Quarter:    1,
			DayOfWeek:  "sunday",
			DayOfYear:  70,
			WeekOfYear: 10,
			IsWeekend:  true,
		}))
	})

	It("normalizes to UTC before deriving fields", func() {
		loc := time.FixedZone("UTC+9", 9*60*60)
		// 2024-01-01 02:30 at +09:00 is 2023-12-31 17:30 UTC.
		ts := time.Date(2024, time.January, 1, 2, 30, 0, 0, loc)
		f := temporal.Stamp(ts)
		Expect(f.Year).To(Equal(2023))
		Expect(f.Month).To(Equal(12))
		Expect(f.Day).To(Equal(31))
		Expect(f.Hour).To(Equal(17))
		Expect(f.Quarter).To(Equal(4))
		Expect(f.DayOfWeek).To(Equal("sunday"))
	})

	It("uses ISO week numbering", func() {
		// 2021-01-01 is a Friday in ISO week 53 of 2020.
		f := temporal.Stamp(time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC))
		Expect(f.WeekOfYear).To(Equal(53))
	})

	It("keeps quarter and weekend consistent across a year", func() {
		start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		for d := 0; d < 366; d++ {
			ts := start.AddDate(0, 0, d).Add(time.Duration(d%24) * time.Hour)
			f := temporal.Stamp(ts)

			Expect(f.Quarter).To(BeElementOf(1, 2, 3, 4))
			Expect(f.Quarter).To(Equal((int(ts.Month())-1)/3 + 1))

			weekend := f.DayOfWeek == "saturday" || f.DayOfWeek == "sunday"
			Expect(f.IsWeekend).To(Equal(weekend))
		}
	})

	It("is a pure function of the timestamp", func() {
		ts := time.Date(2024, time.July, 4, 8, 15, 0, 0, time.UTC)
		Expect(temporal.Stamp(ts)).To(Equal(temporal.Stamp(ts)))
	})
})

var _ = Describe("PartOfDay", func() {
	DescribeTable("names the part of day",
		func(hour int, want string) {
			Expect(temporal.PartOfDay(hour)).To(Equal(want))
		},
		Entry("early morning", 5, "morning"),
		Entry("late morning", 11, "morning"),
		Entry("noon", 12, "afternoon"),
		Entry("evening", 17, "evening"),
		Entry("late evening", 20, "evening"),
		Entry("night", 21, "night"),
		Entry("small hours", 3, "night"),
	)
})

var _ = Describe("Parse", func() {
	// Wednesday.
	now := time.Date(2024, time.March, 13, 10, 30, 0, 0, time.UTC)

	unix := func(y int, m time.Month, d int) int64 {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	}

	DescribeTable("recognized expressions",
		func(expr string, want vector.Filter) {
			got, ok := temporal.Parse(expr, now)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(want))
		},
		Entry("today", "today", vector.Range(vector.FieldCreatedAt, unix(2024, 3, 13), unix(2024, 3, 14))),
		Entry("yesterday", "yesterday", vector.Range(vector.FieldCreatedAt, unix(2024, 3, 12), unix(2024, 3, 13))),
		Entry("this_week", "this_week", vector.Range(vector.FieldCreatedAt, unix(2024, 3, 11), unix(2024, 3, 18))),
		Entry("last_week", "last_week", vector.Range(vector.FieldCreatedAt, unix(2024, 3, 4), unix(2024, 3, 11))),
		Entry("weekends", "weekends", vector.Eq(vector.FieldIsWeekend, true)),
		Entry("weekdays", "weekdays", vector.Eq(vector.FieldIsWeekend, false)),
		Entry("q3", "q3", vector.Eq(vector.FieldQuarter, 3)),
		Entry("morning", "morning", vector.Range(vector.FieldHour, 5, 12)),
		Entry("afternoon", "afternoon", vector.Range(vector.FieldHour, 12, 17)),
		Entry("evening", "evening", vector.Range(vector.FieldHour, 17, 21)),
		Entry("weekday name", "friday", vector.Eq(vector.FieldDayOfWeek, "friday")),
		Entry("mixed case", "  MoRnInG ", vector.Range(vector.FieldHour, 5, 12)),
		Entry("spaces for underscores", "last week", vector.Range(vector.FieldCreatedAt, unix(2024, 3, 4), unix(2024, 3, 11))),
		Entry("singular alias", "weekend", vector.Eq(vector.FieldIsWeekend, true)),
	)

	It("anchors this_week on Monday when now is a Sunday", func() {
		sunday := time.Date(2024, time.March, 10, 23, 0, 0, 0, time.UTC)
		got, ok := temporal.Parse("this_week", sunday)
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(vector.Range(vector.FieldCreatedAt, unix(2024, 3, 4), unix(2024, 3, 11))))
	})

	DescribeTable("fails open on unknown input",
		func(expr string) {
			got, ok := temporal.Parse(expr, now)
			Expect(ok).To(BeFalse())
			Expect(got.IsEmpty()).To(BeTrue())
		},
		Entry("gibberish", "not_a_real_expression"),
		Entry("empty", ""),
		Entry("night is not a keyword", "night"),
		Entry("q5", "q5"),
	)

	It("lists its vocabulary", func() {
		Expect(temporal.Keywords()).To(ContainElements("today", "q4", "monday", "weekends"))
		Expect(temporal.Keywords()).NotTo(ContainElement("night"))
	})

	It("lists the singular aliases and recognizes every listed keyword", func() {
		Expect(temporal.Keywords()).To(ContainElements("weekend", "weekday"))
		for _, kw := range temporal.Keywords() {
			_, ok := temporal.Parse(kw, time.Date(2024, time.March, 10, 13, 0, 0, 0, time.UTC))
			Expect(ok).To(BeTrue(), kw)
		}
	})
})
