package vector

import (
	"slices"

	"github.com/papercomputeco/recall/pkg/memory"
)

// Match evaluates the filter against a record in process.
func Match(f Filter, r memory.Record) bool {
	switch f.Op {
	case OpAll:
		return true
	case OpAnd:
		for _, c := range f.Children {
			if !Match(c, r) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range f.Children {
			if Match(c, r) {
				return true
			}
		}
		return false
	case OpEq:
		switch f.Field.Kind() {
		case KindString:
			s, ok := f.Value.(string)
			return ok && stringField(r, f.Field) == s
		case KindInt:
			n, ok := f.Value.(int64)
			return ok && IntField(r, f.Field) == n
		case KindBool:
			b, ok := f.Value.(bool)
			return ok && r.Temporal.IsWeekend == b
		}
		return false
	case OpAnyOf:
		if f.Field.Kind() == KindString {
			return slices.Contains(f.Values, stringField(r, f.Field))
		}
		have := listField(r, f.Field)
		for _, v := range f.Values {
			if slices.Contains(have, v) {
				return true
			}
		}
		return false
	case OpAllOf:
		have := listField(r, f.Field)
		for _, v := range f.Values {
			if !slices.Contains(have, v) {
				return false
			}
		}
		return true
	case OpRange:
		n := IntField(r, f.Field)
		return n >= f.Gte && n < f.Lt
	default:
		return false
	}
}

// IntField returns the value of an integer field. Drivers that keep
// filterable columns next to the payload use it to populate them.
func IntField(r memory.Record, f Field) int64 {
	switch f {
	case FieldCreatedAt:
		return r.CreatedAt.Unix()
	case FieldYear:
		return int64(r.Temporal.Year)
	case FieldMonth:
		return int64(r.Temporal.Month)
	case FieldDay:
		return int64(r.Temporal.Day)
	case FieldHour:
		return int64(r.Temporal.Hour)
	case FieldMinute:
		return int64(r.Temporal.Minute)
	case FieldQuarter:
		return int64(r.Temporal.Quarter)
	case FieldDayOfYear:
		return int64(r.Temporal.DayOfYear)
	case FieldWeekOfYear:
		return int64(r.Temporal.WeekOfYear)
	default:
		return 0
	}
}

func stringField(r memory.Record, f Field) string {
	switch f {
	case FieldUserID:
		return r.UserID
	case FieldProjectID:
		return r.ProjectID
	case FieldTopic:
		return r.TopicCategory
	case FieldDayOfWeek:
		return r.Temporal.DayOfWeek
	default:
		return ""
	}
}

func listField(r memory.Record, f Field) []string {
	switch f {
	case FieldTags:
		return r.Tags
	case FieldPeople:
		return r.PeopleMentioned
	default:
		return nil
	}
}
