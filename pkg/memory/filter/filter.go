// Package filter composes the structured filter for a memory search from the
// caller's owner scope and optional predicates.
package filter

import (
	"time"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/metadata"
	"github.com/papercomputeco/recall/pkg/memory/temporal"
	"github.com/papercomputeco/recall/pkg/vector"
)

// Query holds the optional predicates of a search. Zero values mean
// "no constraint".
type Query struct {
	Scope    memory.OwnerScope
	Tags     []string
	MatchAll bool
	People   []string
	Topic    string
	Temporal string
}

// Build returns AND(owner scope, predicates...). Requested metadata is
// normalized like stored metadata, so "Work" finds a memory tagged "work".
// Absent predicates are omitted and an unrecognized temporal expression
// contributes nothing.
// The boolean reports whether the temporal expression, if any, was
// recognized.
func Build(q Query, now time.Time) (vector.Filter, bool) {
	parts := []vector.Filter{vector.ScopeFilter(q.Scope)}

	if tags := metadata.NormalizeQuery(q.Tags); len(tags) > 0 {
		if q.MatchAll {
			parts = append(parts, vector.AllOf(vector.FieldTags, tags...))
		} else {
			parts = append(parts, vector.AnyOf(vector.FieldTags, tags...))
		}
	}

	if people := metadata.NormalizeQuery(q.People); len(people) > 0 {
		parts = append(parts, vector.AnyOf(vector.FieldPeople, people...))
	}

	if topic := metadata.NormalizeQueryTopic(q.Topic); topic != "" {
		parts = append(parts, vector.Eq(vector.FieldTopic, topic))
	}

	recognized := true
	if q.Temporal != "" {
		var pred vector.Filter
		pred, recognized = temporal.Parse(q.Temporal, now)
		parts = append(parts, pred)
	}

	return vector.And(parts...), recognized
}
