// Package memory defines the records, owner scopes and errors shared by the
// memory engine and its collaborators.
//
// A memory is a short piece of text plus structured metadata (tags, people
// mentioned, topic) and a set of temporal fields derived from its creation
// time. Every record belongs to exactly one [OwnerScope]; nothing in this
// module reads or writes a record without one.
package memory

import (
	"slices"
	"strings"
	"time"
)

// OwnerScope isolates one tenant's memories from another's.
// UserID is required; ProjectID is optional and, when empty, addresses the
// user's project-less memories.
type OwnerScope struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id,omitempty"`
}

// Validate reports ErrMissingOwner when the scope has no user.
func (s OwnerScope) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrMissingOwner
	}
	return nil
}

// Owns reports whether the record belongs to this scope.
func (s OwnerScope) Owns(r Record) bool {
	return r.UserID == s.UserID && r.ProjectID == s.ProjectID
}

func (s OwnerScope) String() string {
	if s.ProjectID == "" {
		return s.UserID
	}
	return s.UserID + "/" + s.ProjectID
}

// TemporalFields are derived once from a record's creation time and never
// recomputed.
type TemporalFields struct {
	Day        int    `json:"day"`
	Hour       int    `json:"hour"`
	Minute     int    `json:"minute"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Quarter    int    `json:"quarter"`
	DayOfWeek  string `json:"day_of_week"`
	DayOfYear  int    `json:"day_of_year"`
	WeekOfYear int    `json:"week_of_year"`
	IsWeekend  bool   `json:"is_weekend"`
}

// Record is the stored unit. It is the payload handed to vector drivers and
// deliberately carries no embedding: the vector store owns that.
type Record struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	ProjectID       string         `json:"project_id,omitempty"`
	Content         string         `json:"content"`
	Tags            []string       `json:"tags"`
	PeopleMentioned []string       `json:"people_mentioned"`
	TopicCategory   string         `json:"topic_category,omitempty"`
	Temporal        TemporalFields `json:"temporal"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Scope returns the owner scope the record belongs to.
func (r Record) Scope() OwnerScope {
	return OwnerScope{UserID: r.UserID, ProjectID: r.ProjectID}
}

// Clone returns a deep copy so callers can mutate slices safely.
func (r Record) Clone() Record {
	c := r
	c.Tags = slices.Clone(r.Tags)
	c.PeopleMentioned = slices.Clone(r.PeopleMentioned)
	return c
}
