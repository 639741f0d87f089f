package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
	"github.com/papercomputeco/recall/pkg/memory/metadata"
	"github.com/papercomputeco/recall/pkg/memory/temporal"
	"github.com/papercomputeco/recall/pkg/vector"
)

// AddRequest is the input of Add. Tags and People accept comma-separated
// elements, so []string{"a, b"} and []string{"a", "b"} are equivalent.
type AddRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
	People  []string `json:"people_mentioned,omitempty"`
	Topic   string   `json:"topic_category,omitempty"`

	// SkipDuplicateCheck bypasses duplicate detection for this call.
	SkipDuplicateCheck bool `json:"skip_duplicate_check,omitempty"`

	// Policy overrides the configured duplicate policy.
	Policy dedup.Policy `json:"duplicate_policy,omitempty"`

	// Threshold overrides the configured similarity threshold. Zero keeps
	// the configured value.
	Threshold float64 `json:"duplicate_threshold,omitempty"`
}

// AddResult reports what Add did. ID is the new record's id for
// ActionAdded and the existing record's id for skips and merges.
type AddResult struct {
	ID         string       `json:"id"`
	Duplicate  bool         `json:"duplicate"`
	Similarity *float64     `json:"similarity,omitempty"`
	Action     dedup.Action `json:"action"`
}

// Add validates, stamps and stores a memory for scope, consulting the
// duplicate detector first unless disabled.
func (e *Engine) Add(ctx context.Context, scope memory.OwnerScope, req AddRequest) (*AddResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	meta, err := e.validator.Validate(metadata.Input{
		Content:         req.Content,
		Tags:            req.Tags,
		PeopleMentioned: req.People,
		TopicCategory:   req.Topic,
	})
	if err != nil {
		return nil, err
	}

	policy := e.policy
	if req.Policy != "" {
		if policy, err = dedup.ParsePolicy(string(req.Policy)); err != nil {
			return nil, err
		}
	}

	threshold := e.threshold
	if req.Threshold != 0 {
		if err := dedup.ValidateThreshold(req.Threshold); err != nil {
			return nil, err
		}
		threshold = req.Threshold
	}

	created := e.now().UTC()
	record := memory.Record{
		ID:              uuid.NewString(),
		UserID:          scope.UserID,
		ProjectID:       scope.ProjectID,
		Content:         meta.Content,
		Tags:            meta.Tags,
		PeopleMentioned: meta.PeopleMentioned,
		TopicCategory:   meta.TopicCategory,
		Temporal:        temporal.Stamp(created),
		CreatedAt:       created,
		UpdatedAt:       created,
	}

	embedding, err := e.embed(ctx, record.Content)
	if err != nil {
		return nil, err
	}

	result := &AddResult{Action: dedup.ActionAdded}

	if e.dedupEnabled && !req.SkipDuplicateCheck {
		outcome, err := e.detector.Resolve(ctx, record, embedding, policy, threshold)
		if err != nil {
			e.logger.Error("duplicate check failed", "scope", scope.String(), "error", err)
			return nil, err
		}

		if outcome.Match != nil {
			sim := outcome.Match.Similarity
			result.Similarity = &sim
		}

		switch outcome.Action {
		case dedup.ActionSkipped:
			e.logger.Debug("memory skipped as duplicate",
				"scope", scope.String(),
				"existing_id", outcome.Match.Record.ID,
			)
			result.ID = outcome.Match.Record.ID
			result.Duplicate = true
			result.Action = dedup.ActionSkipped
			return result, nil

		case dedup.ActionMerged:
			e.logger.Debug("memory merged into duplicate",
				"scope", scope.String(),
				"existing_id", outcome.Match.Record.ID,
			)
			result.ID = outcome.Match.Record.ID
			result.Duplicate = true
			result.Action = dedup.ActionMerged
			e.notify(eventstream.EventTypeMemoryMerged, outcome.Match.Record, result.Similarity)
			return result, nil
		}
	}

	if err := e.store.Insert(ctx, vector.Document{
		ID:        record.ID,
		Embedding: embedding,
		Payload:   record,
	}); err != nil {
		e.logger.Error("storing memory failed", "scope", scope.String(), "error", err)
		return nil, memory.NewStorageError("insert", err)
	}

	e.logger.Debug("memory added", "scope", scope.String(), "id", record.ID)
	e.notify(eventstream.EventTypeMemoryAdded, record, nil)

	result.ID = record.ID
	return result, nil
}
