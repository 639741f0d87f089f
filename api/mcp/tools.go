package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
	"github.com/papercomputeco/recall/pkg/memory/engine"
	"github.com/papercomputeco/recall/pkg/memory/temporal"
)

var (
	addToolName    = "add_memory"
	addDescription = "Store a memory for a user. Near-duplicates of an existing memory are skipped by default; set duplicate_policy to \"merge\" to fold new tags and people into the existing memory, or \"add\" to store it anyway."

	searchToolName = "search_memories"

	getToolName    = "get_memory"
	getDescription = "Fetch a single memory by id."

	deleteToolName    = "delete_memory"
	deleteDescription = "Delete a memory by id."
)

func searchDescription() string {
	return "Search a user's memories. With a query, results are ranked by semantic similarity; without one, the newest matching memories are listed. " +
		"Narrow results by tags, people, topic and a time expression. Recognized time expressions: " +
		strings.Join(temporal.Keywords(), ", ") + "."
}

// AddInput represents the input arguments for the add_memory tool.
type AddInput struct {
	UserID          string   `json:"user_id" jsonschema:"the user who owns the memory"`
	ProjectID       string   `json:"project_id,omitempty" jsonschema:"optional project scoping the memory"`
	Content         string   `json:"content" jsonschema:"the text to remember"`
	Tags            []string `json:"tags,omitempty" jsonschema:"labels for the memory"`
	PeopleMentioned []string `json:"people_mentioned,omitempty" jsonschema:"people the memory mentions"`
	TopicCategory   string   `json:"topic_category,omitempty" jsonschema:"a single topic such as work or health"`
	DuplicatePolicy string   `json:"duplicate_policy,omitempty" jsonschema:"skip, merge or add"`
}

// SearchInput represents the input arguments for the search_memories tool.
type SearchInput struct {
	UserID    string   `json:"user_id" jsonschema:"the user who owns the memories"`
	ProjectID string   `json:"project_id,omitempty" jsonschema:"optional project scoping the memories"`
	Query     string   `json:"query,omitempty" jsonschema:"text to match by meaning"`
	Tags      []string `json:"tags,omitempty" jsonschema:"only memories with these tags"`
	MatchAll  bool     `json:"match_all,omitempty" jsonschema:"require every tag instead of any"`
	People    []string `json:"people,omitempty" jsonschema:"only memories mentioning these people"`
	Topic     string   `json:"topic,omitempty" jsonschema:"only memories in this topic"`
	Temporal  string   `json:"temporal,omitempty" jsonschema:"a time expression such as weekends or last_week"`
	Limit     int      `json:"limit,omitempty" jsonschema:"maximum number of results (default 10)"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum similarity between 0 and 1"`
}

// IDInput represents the input arguments for tools addressing one memory.
type IDInput struct {
	UserID    string `json:"user_id" jsonschema:"the user who owns the memory"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"optional project scoping the memory"`
	ID        string `json:"id" jsonschema:"the memory id"`
}

// AddOutput is the structured output of add_memory.
type AddOutput struct {
	ID         string  `json:"id"`
	Duplicate  bool    `json:"duplicate"`
	Similarity float64 `json:"similarity,omitempty"`
	Action     string  `json:"action"`
}

// Memory is one memory as returned by the tools. It carries the same fields
// as an HTTP search result; timestamps are RFC 3339.
type Memory struct {
	ID              string                `json:"id"`
	Content         string                `json:"content"`
	Score           *float64              `json:"score,omitempty"`
	Tags            []string              `json:"tags"`
	PeopleMentioned []string              `json:"people_mentioned"`
	TopicCategory   string                `json:"topic_category,omitempty"`
	Temporal        memory.TemporalFields `json:"temporal"`
	Matched         engine.Matched        `json:"matched"`
	CreatedAt       string                `json:"created_at"`
	UpdatedAt       string                `json:"updated_at"`
}

// SearchOutput is the structured output of search_memories.
type SearchOutput struct {
	Results         []Memory `json:"results"`
	Count           int      `json:"count"`
	TemporalIgnored bool     `json:"temporal_ignored,omitempty"`
}

// DeleteOutput reports a deletion.
type DeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func scopeOf(userID, projectID string) memory.OwnerScope {
	return memory.OwnerScope{
		UserID:    strings.TrimSpace(userID),
		ProjectID: strings.TrimSpace(projectID),
	}
}

func toMemory(r engine.Result) Memory {
	return Memory{
		ID:              r.ID,
		Content:         r.Content,
		Score:           r.Score,
		Tags:            r.Tags,
		PeopleMentioned: r.PeopleMentioned,
		TopicCategory:   r.TopicCategory,
		Temporal:        r.Temporal,
		Matched:         r.Matched,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleAdd(ctx context.Context, _ *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, AddOutput, error) {
	result, err := s.config.Memories.Add(ctx, scopeOf(input.UserID, input.ProjectID), engine.AddRequest{
		Content: input.Content,
		Tags:    input.Tags,
		People:  input.PeopleMentioned,
		Topic:   input.TopicCategory,
		Policy:  dedup.Policy(input.DuplicatePolicy),
	})
	if err != nil {
		return s.toolError("add", err), AddOutput{}, nil
	}

	output := AddOutput{
		ID:        result.ID,
		Duplicate: result.Duplicate,
		Action:    string(result.Action),
	}
	if result.Similarity != nil {
		output.Similarity = *result.Similarity
	}
	return jsonResult(output)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	resp, err := s.config.Memories.Search(ctx, scopeOf(input.UserID, input.ProjectID), engine.SearchRequest{
		Query:     input.Query,
		Tags:      input.Tags,
		MatchAll:  input.MatchAll,
		People:    input.People,
		Topic:     input.Topic,
		Temporal:  input.Temporal,
		Limit:     input.Limit,
		Threshold: input.Threshold,
	})
	if err != nil {
		return s.toolError("search", err), SearchOutput{}, nil
	}

	output := SearchOutput{
		Results:         make([]Memory, 0, len(resp.Results)),
		Count:           resp.Count,
		TemporalIgnored: resp.TemporalIgnored,
	}
	for _, r := range resp.Results {
		output.Results = append(output.Results, toMemory(r))
	}
	return jsonResult(output)
}

func (s *Server) handleGet(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, Memory, error) {
	result, err := s.config.Memories.Get(ctx, scopeOf(input.UserID, input.ProjectID), input.ID)
	if err != nil {
		return s.toolError("get", err), Memory{}, nil
	}
	return jsonResult(toMemory(*result))
}

func (s *Server) handleDelete(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if err := s.config.Memories.Delete(ctx, scopeOf(input.UserID, input.ProjectID), input.ID); err != nil {
		return s.toolError("delete", err), DeleteOutput{}, nil
	}
	return jsonResult(DeleteOutput{ID: input.ID, Deleted: true})
}

// toolError reports a failed call to the client as a tool result rather
// than a protocol error, so the model can read and react to it. Storage
// causes are logged and never sent to the client.
func (s *Server) toolError(op string, err error) *mcp.CallToolResult {
	msg := err.Error()
	if memory.IsStorageError(err) {
		s.config.Logger.Error("memory tool failed", "tool", op, "error", err)
		msg = "storage failure"
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s failed: %s", op, msg)},
		},
	}
}

func jsonResult[T any](output T) (*mcp.CallToolResult, T, error) {
	var zero T
	b, err := json.Marshal(output)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, output, nil
}
