package engine

import (
	"time"

	"github.com/papercomputeco/recall/pkg/memory"
)

// Matched lists which of the requested tags and people a result carries.
type Matched struct {
	Tags   []string `json:"tags"`
	People []string `json:"people"`
}

// Result is one formatted search result. Score is nil for metadata-only
// listings.
type Result struct {
	ID              string                `json:"id"`
	Content         string                `json:"content"`
	Score           *float64              `json:"score"`
	Tags            []string              `json:"tags"`
	PeopleMentioned []string              `json:"people_mentioned"`
	TopicCategory   string                `json:"topic_category,omitempty"`
	Temporal        memory.TemporalFields `json:"temporal"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Matched         Matched               `json:"matched"`
}

func newResult(r memory.Record, score *float64, match matchSets) Result {
	return Result{
		ID:              r.ID,
		Content:         r.Content,
		Score:           score,
		Tags:            nonNil(r.Tags),
		PeopleMentioned: nonNil(r.PeopleMentioned),
		TopicCategory:   r.TopicCategory,
		Temporal:        r.Temporal,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Matched:         match.apply(r),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
