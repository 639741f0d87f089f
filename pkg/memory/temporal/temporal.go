// Package temporal derives structured time fields from a memory's creation
// time and turns natural-language time expressions into filter predicates.
//
// The expression vocabulary is a closed table. Anything outside it yields an
// empty predicate: an unknown expression widens a search instead of
// narrowing it to nothing.
package temporal

import (
	"slices"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
)

// Part-of-day boundaries, as [start, end) hours in UTC.
const (
	morningStart   = 5
	afternoonStart = 12
	eveningStart   = 17
	nightStart     = 21
)

// Stamp derives the temporal fields of t. All fields come from t in UTC.
func Stamp(t time.Time) memory.TemporalFields {
	u := t.UTC()
	_, week := u.ISOWeek()
	weekday := u.Weekday()

	return memory.TemporalFields{
		Day:        u.Day(),
		Hour:       u.Hour(),
		Minute:     u.Minute(),
		Year:       u.Year(),
		Month:      int(u.Month()),
		Quarter:    (int(u.Month())-1)/3 + 1,
		DayOfWeek:  strings.ToLower(weekday.String()),
		DayOfYear:  u.YearDay(),
		WeekOfYear: week,
		IsWeekend:  weekday == time.Saturday || weekday == time.Sunday,
	}
}

// PartOfDay names the part of day an hour falls in: morning, afternoon,
// evening or night. Night is never a searchable keyword.
func PartOfDay(hour int) string {
	switch {
	case hour >= morningStart && hour < afternoonStart:
		return "morning"
	case hour >= afternoonStart && hour < eveningStart:
		return "afternoon"
	case hour >= eveningStart && hour < nightStart:
		return "evening"
	default:
		return "night"
	}
}

type rule func(now time.Time) vector.Filter

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var rules = map[string]rule{
	"today": func(now time.Time) vector.Filter {
		start := startOfDay(now)
		return createdBetween(start, start.AddDate(0, 0, 1))
	},
	"yesterday": func(now time.Time) vector.Filter {
		start := startOfDay(now)
		return createdBetween(start.AddDate(0, 0, -1), start)
	},
	"this_week": func(now time.Time) vector.Filter {
		start := startOfISOWeek(now)
		return createdBetween(start, start.AddDate(0, 0, 7))
	},
	"last_week": func(now time.Time) vector.Filter {
		start := startOfISOWeek(now)
		return createdBetween(start.AddDate(0, 0, -7), start)
	},
	"weekends":  constant(vector.Eq(vector.FieldIsWeekend, true)),
	"weekdays":  constant(vector.Eq(vector.FieldIsWeekend, false)),
	"q1":        constant(vector.Eq(vector.FieldQuarter, 1)),
	"q2":        constant(vector.Eq(vector.FieldQuarter, 2)),
	"q3":        constant(vector.Eq(vector.FieldQuarter, 3)),
	"q4":        constant(vector.Eq(vector.FieldQuarter, 4)),
	"morning":   constant(vector.Range(vector.FieldHour, morningStart, afternoonStart)),
	"afternoon": constant(vector.Range(vector.FieldHour, afternoonStart, eveningStart)),
	"evening":   constant(vector.Range(vector.FieldHour, eveningStart, nightStart)),
}

var aliases = map[string]string{
	"weekend": "weekends",
	"weekday": "weekdays",
}

func init() {
	for _, day := range weekdays {
		rules[day] = constant(vector.Eq(vector.FieldDayOfWeek, day))
	}
}

// Parse maps a time expression to a filter predicate evaluated relative to
// now. The second return value reports whether the expression was
// recognized; when it is false the filter is empty.
func Parse(expr string, now time.Time) (vector.Filter, bool) {
	key := canonical(expr)
	if alias, ok := aliases[key]; ok {
		key = alias
	}

	r, ok := rules[key]
	if !ok {
		return vector.Filter{}, false
	}
	return r(now), true
}

// Keywords returns the recognized expressions, aliases included, sorted.
func Keywords() []string {
	out := make([]string, 0, len(rules)+len(aliases))
	for k := range rules {
		out = append(out, k)
	}
	for k := range aliases {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func canonical(expr string) string {
	s := strings.ToLower(strings.TrimSpace(expr))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func constant(f vector.Filter) rule {
	return func(time.Time) vector.Filter { return f }
}

func createdBetween(start, end time.Time) vector.Filter {
	return vector.Range(vector.FieldCreatedAt, start.Unix(), end.Unix())
}

func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfISOWeek returns Monday 00:00 UTC of the ISO week containing t.
func startOfISOWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
