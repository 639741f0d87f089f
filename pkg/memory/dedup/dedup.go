// Package dedup decides what happens when a new memory is nearly identical
// to one its owner already has.
//
// The check consults the vector store for the single nearest neighbour inside
// the owner scope. Check and insert are separate store calls, so two
// concurrent adds of the same content can both pass the check.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/metadata"
	"github.com/papercomputeco/recall/pkg/vector"
)

// DefaultThreshold is the cosine similarity at or above which two memories
// are duplicates.
const DefaultThreshold = 0.95

// ErrInvalidPolicy is returned by ParsePolicy for unknown names.
var ErrInvalidPolicy = errors.New("invalid duplicate policy")

// ErrInvalidThreshold is returned for thresholds outside [0, 1].
var ErrInvalidThreshold = errors.New("invalid duplicate threshold")

// Policy is the action taken when a duplicate is found.
type Policy string

const (
	// PolicySkip rejects the new memory and reports the existing one.
	PolicySkip Policy = "skip"

	// PolicyMerge folds the new metadata into the existing memory.
	PolicyMerge Policy = "merge"

	// PolicyAdd ignores the match and stores the new memory anyway.
	PolicyAdd Policy = "add"
)

// DefaultPolicy is used when no policy is configured.
const DefaultPolicy = PolicySkip

// ParsePolicy validates a policy name. The empty string yields DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DefaultPolicy, nil
	case PolicySkip, PolicyMerge, PolicyAdd:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (want skip, merge or add)", ErrInvalidPolicy, s)
	}
}

// ValidateThreshold reports ErrInvalidThreshold for values outside [0, 1].
func ValidateThreshold(t float64) error {
	if t < 0 || t > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, t)
	}
	return nil
}

// Action is the outcome of an add.
type Action string

const (
	ActionAdded   Action = "added"
	ActionSkipped Action = "skipped"
	ActionMerged  Action = "merged"
)

// Match is an existing memory whose similarity reached the threshold.
type Match struct {
	Record     memory.Record
	Similarity float64
}

// Outcome is what Resolve decided. When Action is ActionAdded the caller
// inserts the candidate; Match is still set if the add policy overrode one.
type Outcome struct {
	Action Action
	Match  *Match
}

// Detector checks candidates against the store.
type Detector struct {
	store  vector.Driver
	logger *slog.Logger
	now    func() time.Time
}

// NewDetector creates a Detector. A nil clock uses time.Now.
func NewDetector(store vector.Driver, logger *slog.Logger, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{store: store, logger: logger, now: now}
}

// Check returns the nearest memory in scope when its similarity is at least
// threshold, or nil.
func (d *Detector) Check(ctx context.Context, embedding []float32, scope memory.OwnerScope, threshold float64) (*Match, error) {
	results, err := d.store.Nearest(ctx, embedding, scope, 1)
	if err != nil {
		return nil, memory.NewStorageError("nearest", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	best := results[0]
	// Never trust the store to have scoped the lookup.
	if !scope.Owns(best.Payload) {
		return nil, nil
	}
	if best.Score < threshold {
		return nil, nil
	}

	return &Match{Record: best.Payload.Clone(), Similarity: best.Score}, nil
}

// Resolve applies policy to candidate. Merge persists the merged payload
// before returning.
func (d *Detector) Resolve(ctx context.Context, candidate memory.Record, embedding []float32, policy Policy, threshold float64) (Outcome, error) {
	match, err := d.Check(ctx, embedding, candidate.Scope(), threshold)
	if err != nil {
		return Outcome{}, err
	}
	if match == nil {
		return Outcome{Action: ActionAdded}, nil
	}

	log := d.logger.With("existing_id", match.Record.ID, "similarity", match.Similarity, "policy", string(policy))

	switch policy {
	case PolicyAdd:
		log.Debug("duplicate ignored by policy")
		return Outcome{Action: ActionAdded, Match: match}, nil

	case PolicyMerge:
		merged := Merge(match.Record, candidate, d.now())
		if err := d.store.UpdatePayload(ctx, merged.ID, merged); err != nil {
			return Outcome{}, memory.NewStorageError("update_payload", err)
		}
		match.Record = merged
		log.Debug("duplicate merged")
		return Outcome{Action: ActionMerged, Match: match}, nil

	default:
		log.Debug("duplicate skipped")
		return Outcome{Action: ActionSkipped, Match: match}, nil
	}
}

// Merge folds incoming metadata into existing: tags and people are unioned,
// the topic is taken only when existing has none. Content, id, owner and
// creation time never change.
func Merge(existing, incoming memory.Record, now time.Time) memory.Record {
	out := existing.Clone()
	out.Tags = metadata.Union(existing.Tags, incoming.Tags)
	out.PeopleMentioned = metadata.Union(existing.PeopleMentioned, incoming.PeopleMentioned)
	if out.TopicCategory == "" {
		out.TopicCategory = incoming.TopicCategory
	}
	out.UpdatedAt = now.UTC()
	return out
}
