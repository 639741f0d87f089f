// Package client is an HTTP client for a running recall API server. It is
// used by the CLI commands that talk to "recall serve".
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/engine"
)

// Client calls the /v1/memories API on behalf of one owner scope.
type Client struct {
	base   *url.URL
	scope  memory.OwnerScope
	client *http.Client
}

// New creates a Client for the API at target.
func New(target string, scope memory.OwnerScope) (*Client, error) {
	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API target URL: %q", target)
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		base:   base,
		scope:  scope,
		client: http.DefaultClient,
	}, nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Add stores a memory.
func (c *Client) Add(ctx context.Context, req engine.AddRequest) (*engine.AddResult, error) {
	var result engine.AddResult
	if err := c.do(ctx, http.MethodPost, "/v1/memories", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search runs a combined search.
func (c *Client) Search(ctx context.Context, req engine.SearchRequest) (*engine.SearchResponse, error) {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("query", req.Query)
	set("tags", strings.Join(req.Tags, ","))
	set("people", strings.Join(req.People, ","))
	set("topic", req.Topic)
	set("temporal", req.Temporal)
	if req.MatchAll {
		q.Set("match_all", "true")
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Threshold != nil {
		q.Set("threshold", strconv.FormatFloat(*req.Threshold, 'f', -1, 64))
	}

	var resp engine.SearchResponse
	if err := c.do(ctx, http.MethodGet, "/v1/memories/search", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get fetches one memory.
func (c *Client) Get(ctx context.Context, id string) (*engine.Result, error) {
	var result engine.Result
	if err := c.do(ctx, http.MethodGet, "/v1/memories/"+url.PathEscape(id), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes one memory.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/memories/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawPath = ""
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(api.HeaderUser, c.scope.UserID)
	if c.scope.ProjectID != "" {
		req.Header.Set(api.HeaderProject, c.scope.ProjectID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to recall API at %s: %w", c.base.String(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
