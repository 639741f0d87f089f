// Package metadata normalizes the auxiliary metadata attached to a memory.
//
// Tags and people are free-form lists that arrive either as comma-separated
// strings or as lists whose elements may themselves contain commas. They are
// reduced to sorted sets of trimmed, lower-cased strings. Items that exceed
// the configured bounds are dropped rather than rejected: only empty content
// fails validation.
package metadata

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/papercomputeco/recall/pkg/memory"
)

const (
	// DefaultMaxItems is the default cap on tags or people per memory.
	DefaultMaxItems = 20

	// DefaultMaxItemLength is the default cap, in characters, on a single
	// tag, person or topic.
	DefaultMaxItemLength = 64
)

// Limits bounds the size of normalized metadata.
type Limits struct {
	MaxItems      int
	MaxItemLength int
}

// DefaultLimits returns the default bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxItems:      DefaultMaxItems,
		MaxItemLength: DefaultMaxItemLength,
	}
}

// Input is the raw metadata supplied with a new memory.
type Input struct {
	Content         string
	Tags            []string
	PeopleMentioned []string
	TopicCategory   string
}

// Output is the validated, normalized metadata.
type Output struct {
	Content         string
	Tags            []string
	PeopleMentioned []string
	TopicCategory   string
}

// Validator normalizes metadata within a set of limits.
type Validator struct {
	limits Limits
}

// NewValidator creates a validator. Non-positive limits fall back to the
// defaults.
func NewValidator(limits Limits) *Validator {
	if limits.MaxItems <= 0 {
		limits.MaxItems = DefaultMaxItems
	}
	if limits.MaxItemLength <= 0 {
		limits.MaxItemLength = DefaultMaxItemLength
	}
	return &Validator{limits: limits}
}

// Limits returns the validator's effective limits.
func (v *Validator) Limits() Limits {
	return v.limits
}

// Validate normalizes in. It fails with memory.ErrInvalidMetadata only when
// the content is empty or whitespace-only.
func (v *Validator) Validate(in Input) (Output, error) {
	if strings.TrimSpace(in.Content) == "" {
		return Output{}, memory.ErrInvalidMetadata
	}

	return Output{
		Content:         in.Content,
		Tags:            v.Normalize(in.Tags),
		PeopleMentioned: v.Normalize(in.PeopleMentioned),
		TopicCategory:   v.NormalizeTopic(in.TopicCategory),
	}, nil
}

// Normalize splits every element on commas, trims and lower-cases the
// segments, drops empty and oversized ones, and deduplicates. The result is
// sorted and capped at MaxItems. It never returns nil.
func (v *Validator) Normalize(raw []string) []string {
	out := normalizeSet(raw, v.limits.MaxItemLength)
	if len(out) > v.limits.MaxItems {
		out = out[:v.limits.MaxItems]
	}
	return out
}

// NormalizeQuery normalizes requested values for a search predicate. It
// splits, trims, lower-cases and deduplicates like Normalize but applies no
// count or length limit: a value that could never be stored still
// constrains the search and simply matches nothing.
func NormalizeQuery(raw []string) []string {
	return normalizeSet(raw, 0)
}

// NormalizeQueryTopic trims and lower-cases a requested topic.
func NormalizeQueryTopic(topic string) string {
	return normalizeItem(topic)
}

// normalizeSet returns the sorted set of normalized segments. maxLen <= 0
// disables the length check.
func normalizeSet(raw []string, maxLen int) []string {
	seen := make(map[string]struct{})
	for _, item := range raw {
		for _, segment := range strings.Split(item, ",") {
			s := normalizeItem(segment)
			if s == "" {
				continue
			}
			if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
				continue
			}
			seen[s] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// ParseList normalizes a comma-separated string.
func (v *Validator) ParseList(s string) []string {
	return v.Normalize([]string{s})
}

// NormalizeTopic trims and lower-cases a topic. Oversized topics become
// absent.
func (v *Validator) NormalizeTopic(topic string) string {
	t := normalizeItem(topic)
	if utf8.RuneCountInString(t) > v.limits.MaxItemLength {
		return ""
	}
	return t
}

func normalizeItem(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Union merges two normalized sets, returning a sorted set.
func Union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		seen[s] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Intersect returns the members of want that are present in have, in want's
// order.
func Intersect(want, have []string) []string {
	out := make([]string, 0, len(want))
	for _, w := range want {
		if slices.Contains(have, w) {
			out = append(out, w)
		}
	}
	return out
}
