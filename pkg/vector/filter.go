package vector

import (
	"fmt"
	"strings"
)

// Field names a filterable attribute of a stored memory. The string value is
// the dotted payload path, which the Qdrant driver uses verbatim.
type Field string

const (
	FieldUserID     Field = "user_id"
	FieldProjectID  Field = "project_id"
	FieldTags       Field = "tags"
	FieldPeople     Field = "people_mentioned"
	FieldTopic      Field = "topic_category"
	FieldCreatedAt  Field = "created_at_unix"
	FieldYear       Field = "temporal.year"
	FieldMonth      Field = "temporal.month"
	FieldDay        Field = "temporal.day"
	FieldHour       Field = "temporal.hour"
	FieldMinute     Field = "temporal.minute"
	FieldQuarter    Field = "temporal.quarter"
	FieldDayOfWeek  Field = "temporal.day_of_week"
	FieldDayOfYear  Field = "temporal.day_of_year"
	FieldWeekOfYear Field = "temporal.week_of_year"
	FieldIsWeekend  Field = "temporal.is_weekend"
)

// Kind is the value type stored under a Field.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindList
	KindInt
	KindBool
)

// Kind returns the value type of the field.
func (f Field) Kind() Kind {
	switch f {
	case FieldUserID, FieldProjectID, FieldTopic, FieldDayOfWeek:
		return KindString
	case FieldTags, FieldPeople:
		return KindList
	case FieldCreatedAt, FieldYear, FieldMonth, FieldDay, FieldHour, FieldMinute,
		FieldQuarter, FieldDayOfYear, FieldWeekOfYear:
		return KindInt
	case FieldIsWeekend:
		return KindBool
	default:
		return KindUnknown
	}
}

// Op is the operator of a filter node.
type Op int

const (
	// OpAll matches every document. It is the zero value, so an empty
	// Filter places no constraint.
	OpAll Op = iota
	OpAnd
	OpOr
	OpEq
	OpAnyOf
	OpAllOf
	OpRange
)

func (o Op) String() string {
	switch o {
	case OpAll:
		return "all"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpEq:
		return "eq"
	case OpAnyOf:
		return "any_of"
	case OpAllOf:
		return "all_of"
	case OpRange:
		return "range"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Filter is a node in a structured filter tree.
//
//   - OpAnd / OpOr combine Children.
//   - OpEq compares Field against Value (string, int64 or bool).
//   - OpAnyOf matches when the field holds at least one of Values.
//   - OpAllOf matches when a list field holds every one of Values.
//   - OpRange matches Gte <= field < Lt on integer fields.
type Filter struct {
	Op       Op
	Field    Field
	Value    any
	Values   []string
	Gte      int64
	Lt       int64
	Children []Filter
}

// IsEmpty reports whether the filter places no constraint.
func (f Filter) IsEmpty() bool {
	return f.Op == OpAll
}

// And combines filters conjunctively. Empty children are dropped and nested
// conjunctions are flattened; a single remaining child is returned as is.
func And(children ...Filter) Filter {
	kept := make([]Filter, 0, len(children))
	for _, c := range children {
		switch c.Op {
		case OpAll:
		case OpAnd:
			kept = append(kept, c.Children...)
		default:
			kept = append(kept, c)
		}
	}

	switch len(kept) {
	case 0:
		return Filter{}
	case 1:
		return kept[0]
	default:
		return Filter{Op: OpAnd, Children: kept}
	}
}

// Or combines filters disjunctively. Any empty child makes the whole
// disjunction empty.
func Or(children ...Filter) Filter {
	if len(children) == 0 {
		return Filter{}
	}
	for _, c := range children {
		if c.IsEmpty() {
			return Filter{}
		}
	}
	if len(children) == 1 {
		return children[0]
	}
	return Filter{Op: OpOr, Children: append([]Filter(nil), children...)}
}

// Eq matches field == value. Integer values are normalized to int64.
func Eq(field Field, value any) Filter {
	switch v := value.(type) {
	case int:
		value = int64(v)
	case int32:
		value = int64(v)
	}
	return Filter{Op: OpEq, Field: field, Value: value}
}

// AnyOf matches documents whose field holds at least one of values.
// With no values it places no constraint.
func AnyOf(field Field, values ...string) Filter {
	if len(values) == 0 {
		return Filter{}
	}
	return Filter{Op: OpAnyOf, Field: field, Values: append([]string(nil), values...)}
}

// AllOf matches documents whose list field holds every one of values.
// With no values it places no constraint.
func AllOf(field Field, values ...string) Filter {
	if len(values) == 0 {
		return Filter{}
	}
	return Filter{Op: OpAllOf, Field: field, Values: append([]string(nil), values...)}
}

// Range matches gte <= field < lt.
func Range(field Field, gte, lt int64) Filter {
	return Filter{Op: OpRange, Field: field, Gte: gte, Lt: lt}
}

// Validate checks that every node uses an operator its field supports.
func (f Filter) Validate() error {
	switch f.Op {
	case OpAll:
		return nil
	case OpAnd, OpOr:
		if len(f.Children) == 0 {
			return fmt.Errorf("%w: %s without children", ErrUnsupportedFilter, f.Op)
		}
		for _, c := range f.Children {
			if err := c.Validate(); err != nil {
				return err
			}
		}
		return nil
	case OpEq:
		switch f.Field.Kind() {
		case KindString:
			if _, ok := f.Value.(string); ok {
				return nil
			}
		case KindInt:
			if _, ok := f.Value.(int64); ok {
				return nil
			}
		case KindBool:
			if _, ok := f.Value.(bool); ok {
				return nil
			}
		}
		return fmt.Errorf("%w: eq on %s with %T", ErrUnsupportedFilter, f.Field, f.Value)
	case OpAnyOf:
		if k := f.Field.Kind(); k == KindList || k == KindString {
			return nil
		}
		return fmt.Errorf("%w: any_of on %s", ErrUnsupportedFilter, f.Field)
	case OpAllOf:
		if f.Field.Kind() == KindList {
			return nil
		}
		return fmt.Errorf("%w: all_of on %s", ErrUnsupportedFilter, f.Field)
	case OpRange:
		if f.Field.Kind() == KindInt {
			return nil
		}
		return fmt.Errorf("%w: range on %s", ErrUnsupportedFilter, f.Field)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFilter, f.Op)
	}
}

// String renders the filter for debug logging.
func (f Filter) String() string {
	switch f.Op {
	case OpAll:
		return "*"
	case OpAnd, OpOr:
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			parts[i] = c.String()
		}
		return strings.ToUpper(f.Op.String()) + "(" + strings.Join(parts, ", ") + ")"
	case OpEq:
		return fmt.Sprintf("%s == %v", f.Field, f.Value)
	case OpAnyOf, OpAllOf:
		return fmt.Sprintf("%s %s [%s]", f.Field, f.Op, strings.Join(f.Values, ","))
	case OpRange:
		return fmt.Sprintf("%s in [%d, %d)", f.Field, f.Gte, f.Lt)
	default:
		return f.Op.String()
	}
}
