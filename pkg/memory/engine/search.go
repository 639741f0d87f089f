package engine

import (
	"context"
	"strings"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
	"github.com/papercomputeco/recall/pkg/memory/filter"
	"github.com/papercomputeco/recall/pkg/memory/metadata"
)

// SearchRequest is the input of Search. Every field is optional.
type SearchRequest struct {
	// Query is embedded for a similarity search. When empty the search is a
	// metadata-only listing, newest first.
	Query string `json:"query,omitempty"`

	Tags     []string `json:"tags,omitempty"`
	MatchAll bool     `json:"match_all,omitempty"`
	People   []string `json:"people,omitempty"`
	Topic    string   `json:"topic,omitempty"`

	// Temporal is a time expression such as "weekends" or "last_week".
	// Unrecognized expressions are ignored.
	Temporal string `json:"temporal,omitempty"`

	Limit int `json:"limit,omitempty"`

	// Threshold drops similarity results scoring below it. Ignored for
	// metadata-only listings.
	Threshold *float64 `json:"threshold,omitempty"`
}

// SearchResponse holds ranked results.
type SearchResponse struct {
	Results []Result `json:"results"`
	Count   int      `json:"count"`

	// TemporalIgnored is set when the temporal expression was not
	// recognized and therefore did not narrow the search.
	TemporalIgnored bool `json:"temporal_ignored,omitempty"`
}

// Search finds scope's memories matching req.
func (e *Engine) Search(ctx context.Context, scope memory.OwnerScope, req SearchRequest) (*SearchResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if req.Threshold != nil {
		if err := dedup.ValidateThreshold(*req.Threshold); err != nil {
			return nil, err
		}
	}

	f, recognized := filter.Build(filter.Query{
		Scope:    scope,
		Tags:     req.Tags,
		MatchAll: req.MatchAll,
		People:   req.People,
		Topic:    req.Topic,
		Temporal: req.Temporal,
	}, e.now())
	if !recognized {
		e.logger.Debug("ignoring unrecognized temporal expression", "temporal", req.Temporal)
	}

	limit := e.limit(req.Limit)
	match := matchSets{
		tags:   metadata.NormalizeQuery(req.Tags),
		people: metadata.NormalizeQuery(req.People),
	}

	resp := &SearchResponse{
		Results:         []Result{},
		TemporalIgnored: !recognized,
	}

	if strings.TrimSpace(req.Query) == "" {
		docs, err := e.store.List(ctx, f, limit)
		if err != nil {
			e.logger.Error("listing memories failed", "scope", scope.String(), "filter", f.String(), "error", err)
			return nil, memory.NewStorageError("list", err)
		}
		for _, doc := range docs {
			if !scope.Owns(doc.Payload) {
				continue
			}
			resp.Results = append(resp.Results, newResult(doc.Payload, nil, match))
		}
		resp.Count = len(resp.Results)
		return resp, nil
	}

	embedding, err := e.embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	hits, err := e.store.Search(ctx, embedding, f, limit)
	if err != nil {
		e.logger.Error("searching memories failed", "scope", scope.String(), "filter", f.String(), "error", err)
		return nil, memory.NewStorageError("search", err)
	}

	for _, hit := range hits {
		if !scope.Owns(hit.Payload) {
			continue
		}
		if req.Threshold != nil && hit.Score < *req.Threshold {
			continue
		}
		score := hit.Score
		resp.Results = append(resp.Results, newResult(hit.Payload, &score, match))
	}
	resp.Count = len(resp.Results)
	return resp, nil
}

// TemporalSearch searches within a time expression, optionally ranked by query.
func (e *Engine) TemporalSearch(ctx context.Context, scope memory.OwnerScope, expr, query string, limit int) (*SearchResponse, error) {
	return e.Search(ctx, scope, SearchRequest{Query: query, Temporal: expr, Limit: limit})
}

// SearchByTags searches memories carrying any (or, with matchAll, every) tag.
func (e *Engine) SearchByTags(ctx context.Context, scope memory.OwnerScope, tags []string, matchAll bool, query string, limit int) (*SearchResponse, error) {
	return e.Search(ctx, scope, SearchRequest{Query: query, Tags: tags, MatchAll: matchAll, Limit: limit})
}

// SearchByPeople searches memories mentioning any of people.
func (e *Engine) SearchByPeople(ctx context.Context, scope memory.OwnerScope, people []string, query string, limit int) (*SearchResponse, error) {
	return e.Search(ctx, scope, SearchRequest{Query: query, People: people, Limit: limit})
}

// SearchByTopic searches memories in a topic.
func (e *Engine) SearchByTopic(ctx context.Context, scope memory.OwnerScope, topic, query string, limit int) (*SearchResponse, error) {
	return e.Search(ctx, scope, SearchRequest{Query: query, Topic: topic, Limit: limit})
}

type matchSets struct {
	tags   []string
	people []string
}

func (m matchSets) apply(r memory.Record) Matched {
	return Matched{
		Tags:   metadata.Intersect(m.tags, r.Tags),
		People: metadata.Intersect(m.people, r.PeopleMentioned),
	}
}
