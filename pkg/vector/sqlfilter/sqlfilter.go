// Package sqlfilter compiles a vector.Filter into a parameterized SQL WHERE
// clause for the SQL-backed vector drivers.
//
// Both drivers keep every filterable field in its own column next to the
// JSON payload. The dialect decides placeholder syntax and how list columns
// (tags, people) are tested.
package sqlfilter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/papercomputeco/recall/pkg/vector"
)

// Columns maps each filter field to its column name.
var Columns = map[vector.Field]string{
	vector.FieldUserID:     "user_id",
	vector.FieldProjectID:  "project_id",
	vector.FieldTags:       "tags",
	vector.FieldPeople:     "people_mentioned",
	vector.FieldTopic:      "topic_category",
	vector.FieldCreatedAt:  "created_at_unix",
	vector.FieldYear:       "t_year",
	vector.FieldMonth:      "t_month",
	vector.FieldDay:        "t_day",
	vector.FieldHour:       "t_hour",
	vector.FieldMinute:     "t_minute",
	vector.FieldQuarter:    "t_quarter",
	vector.FieldDayOfWeek:  "t_day_of_week",
	vector.FieldDayOfYear:  "t_day_of_year",
	vector.FieldWeekOfYear: "t_week_of_year",
	vector.FieldIsWeekend:  "t_is_weekend",
}

// Binder appends a query argument and returns its placeholder.
type Binder func(arg any) string

// Dialect renders the parts of a WHERE clause that differ between engines.
type Dialect interface {
	// Placeholder returns the placeholder for the n-th argument (1-based).
	Placeholder(n int) string

	// In renders "column is one of values" for a scalar string column.
	In(column string, values []string, bind Binder) string

	// ListAnyOf renders "list column shares an element with values".
	ListAnyOf(column string, values []string, bind Binder) string

	// ListAllOf renders "list column contains every element of values".
	ListAllOf(column string, values []string, bind Binder) string
}

// Compile returns a WHERE clause (without the keyword) and its arguments.
// offset is the number of arguments already bound before the clause, so
// positional dialects continue numbering from offset+1.
func Compile(f vector.Filter, d Dialect, offset int) (string, []any, error) {
	if err := f.Validate(); err != nil {
		return "", nil, err
	}

	c := &compiler{dialect: d, offset: offset}
	where := c.compile(f)
	return where, c.args, nil
}

type compiler struct {
	dialect Dialect
	offset  int
	args    []any
}

func (c *compiler) bind(arg any) string {
	c.args = append(c.args, arg)
	return c.dialect.Placeholder(c.offset + len(c.args))
}

func (c *compiler) compile(f vector.Filter) string {
	switch f.Op {
	case vector.OpAnd, vector.OpOr:
		joiner := " AND "
		if f.Op == vector.OpOr {
			joiner = " OR "
		}
		parts := make([]string, len(f.Children))
		for i, child := range f.Children {
			parts[i] = c.compile(child)
		}
		return "(" + strings.Join(parts, joiner) + ")"

	case vector.OpEq:
		return fmt.Sprintf("%s = %s", Columns[f.Field], c.bind(f.Value))

	case vector.OpAnyOf:
		values := unique(f.Values)
		if f.Field.Kind() == vector.KindString {
			return c.dialect.In(Columns[f.Field], values, c.bind)
		}
		return c.dialect.ListAnyOf(Columns[f.Field], values, c.bind)

	case vector.OpAllOf:
		return c.dialect.ListAllOf(Columns[f.Field], unique(f.Values), c.bind)

	case vector.OpRange:
		col := Columns[f.Field]
		return fmt.Sprintf("(%s >= %s AND %s < %s)", col, c.bind(f.Gte), col, c.bind(f.Lt))

	default:
		return "1 = 1"
	}
}

func unique(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// SQLite stores list columns as JSON arrays and tests them with json_each.
var SQLite Dialect = sqliteDialect{}

type sqliteDialect struct{}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) In(column string, values []string, bind Binder) string {
	return fmt.Sprintf("%s IN (%s)", column, bindAll(values, bind))
}

func (sqliteDialect) ListAnyOf(column string, values []string, bind Binder) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value IN (%s))",
		column, bindAll(values, bind))
}

func (sqliteDialect) ListAllOf(column string, values []string, bind Binder) string {
	return fmt.Sprintf("(SELECT COUNT(DISTINCT json_each.value) FROM json_each(%s) WHERE json_each.value IN (%s)) = %d",
		column, bindAll(values, bind), len(values))
}

// Postgres stores list columns as text[] and uses array operators.
var Postgres Dialect = postgresDialect{}

type postgresDialect struct{}

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) In(column string, values []string, bind Binder) string {
	return fmt.Sprintf("%s = ANY(%s::text[])", column, bind(values))
}

func (postgresDialect) ListAnyOf(column string, values []string, bind Binder) string {
	return fmt.Sprintf("%s && %s::text[]", column, bind(values))
}

func (postgresDialect) ListAllOf(column string, values []string, bind Binder) string {
	return fmt.Sprintf("%s @> %s::text[]", column, bind(values))
}

func bindAll(values []string, bind Binder) string {
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = bind(v)
	}
	return strings.Join(ph, ", ")
}
