// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing memories.
	DefaultCollectionName = "recall_memories"

	// DefaultMaxRetries is the number of bootstrap attempts before giving up.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the delay before the second bootstrap attempt.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential bootstrap backoff.
	DefaultMaxRetryDelay = 5 * time.Second

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries bounds the attempts to reach Chroma while it starts up.
	MaxRetries int

	// RetryDelay is the initial delay between attempts. It doubles after
	// each failure up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver, retrying the collection
// bootstrap while the server is unavailable.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        strings.TrimSuffix(c.URL, "/"),
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		id, err := d.getOrCreateCollection(context.Background())
		if err == nil {
			d.collectionID = id
			lastErr = nil
			break
		}

		lastErr = err
		logger.Debug("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		if attempt < maxRetries {
			time.Sleep(delay)
			delay = min(delay*2, maxDelay)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: collection %q after %d attempts: %v",
			vector.ErrConnection, collectionName, maxRetries, lastErr)
	}

	logger.Info("connected to Chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", d.collectionID,
	)

	return d, nil
}

// getOrCreateCollection gets an existing collection or creates a new one
// using cosine distance.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var collection chromaCollection
	err := d.do(ctx, http.MethodGet, collectionsPath+"/"+d.collectionName, nil, &collection)
	if err == nil {
		return collection.ID, nil
	}

	err = d.do(ctx, http.MethodPost, collectionsPath, chromaCreateCollectionRequest{
		Name:     d.collectionName,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	}, &collection)
	if err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}

	return collection.ID, nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (d *Driver) recordsPath(op string) string {
	return collectionsPath + "/" + d.collectionID + "/" + op
}

// metadata flattens the filterable fields of a record.
func metadata(r memory.Record) map[string]any {
	t := r.Temporal
	m := map[string]any{
		string(vector.FieldUserID):     r.UserID,
		string(vector.FieldProjectID):  r.ProjectID,
		string(vector.FieldTopic):      r.TopicCategory,
		string(vector.FieldCreatedAt):  r.CreatedAt.Unix(),
		string(vector.FieldYear):       t.Year,
		string(vector.FieldMonth):      t.Month,
		string(vector.FieldDay):        t.Day,
		string(vector.FieldHour):       t.Hour,
		string(vector.FieldMinute):     t.Minute,
		string(vector.FieldQuarter):    t.Quarter,
		string(vector.FieldDayOfWeek):  t.DayOfWeek,
		string(vector.FieldDayOfYear):  t.DayOfYear,
		string(vector.FieldWeekOfYear): t.WeekOfYear,
		string(vector.FieldIsWeekend):  t.IsWeekend,
	}
	for _, tag := range r.Tags {
		m[listKey(vector.FieldTags, tag)] = true
	}
	for _, p := range r.PeopleMentioned {
		m[listKey(vector.FieldPeople, p)] = true
	}
	return m
}

func decode(raw string, emb []float32) (vector.Document, error) {
	var r memory.Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return vector.Document{}, fmt.Errorf("decoding record: %w", err)
	}
	return vector.Document{ID: r.ID, Embedding: emb, Payload: r}, nil
}

func (d *Driver) upsert(ctx context.Context, op, id string, embedding []float32, r memory.Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", id, err)
	}

	req := chromaUpsertRequest{
		IDs:       []string{id},
		Metadatas: []map[string]any{metadata(r)},
		Documents: []string{string(raw)},
	}
	if embedding != nil {
		req.Embeddings = [][]float32{embedding}
	}

	return d.do(ctx, http.MethodPost, d.recordsPath(op), req, nil)
}

// Insert stores a document, replacing any document with the same id.
func (d *Driver) Insert(ctx context.Context, doc vector.Document) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}

	if err := d.upsert(ctx, "upsert", doc.ID, doc.Embedding, doc.Payload); err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}

	d.logger.Debug("added document to chroma", "id", doc.ID)
	return nil
}

// Search finds the documents matching filter that are most similar to the
// given embedding.
func (d *Driver) Search(ctx context.Context, embedding []float32, filter vector.Filter, limit int) ([]vector.QueryResult, error) {
	where, err := CompileWhere(filter)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	var queryResp chromaQueryResponse
	err = d.do(ctx, http.MethodPost, d.recordsPath("query"), chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        limit,
		Where:           where,
		Include:         []string{"documents", "distances", "embeddings"},
	}, &queryResp)
	if err != nil {
		return nil, fmt.Errorf("querying chroma: %w", err)
	}

	// Only one embedding is queried, so only the first group is populated.
	if len(queryResp.IDs) == 0 {
		return nil, nil
	}

	results := make([]vector.QueryResult, 0, len(queryResp.IDs[0]))
	for i := range queryResp.IDs[0] {
		var emb []float32
		if len(queryResp.Embeddings) > 0 && i < len(queryResp.Embeddings[0]) {
			emb = queryResp.Embeddings[0][i]
		}

		doc, err := decode(queryResp.Documents[0][i], emb)
		if err != nil {
			return nil, err
		}

		// The collection uses cosine distance, which is 1 - similarity.
		results = append(results, vector.QueryResult{
			Document: doc,
			Score:    1 - queryResp.Distances[0][i],
		})
	}

	d.logger.Debug("queried chroma",
		"filter", filter.String(),
		"results", len(results),
	)

	return results, nil
}

func (d *Driver) get(ctx context.Context, req chromaGetRequest) ([]vector.Document, error) {
	req.Include = []string{"documents", "embeddings"}

	var getResp chromaGetResponse
	if err := d.do(ctx, http.MethodPost, d.recordsPath("get"), req, &getResp); err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}

	docs := make([]vector.Document, 0, len(getResp.IDs))
	for i := range getResp.IDs {
		var emb []float32
		if i < len(getResp.Embeddings) {
			emb = getResp.Embeddings[i]
		}

		doc, err := decode(getResp.Documents[i], emb)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// List returns documents matching filter, newest first. Chroma cannot order
// results, so the matching set is sorted and truncated client side.
func (d *Driver) List(ctx context.Context, filter vector.Filter, limit int) ([]vector.Document, error) {
	where, err := CompileWhere(filter)
	if err != nil {
		return nil, err
	}

	docs, err := d.get(ctx, chromaGetRequest{Where: where})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(docs, func(a, b vector.Document) int {
		if c := b.Payload.CreatedAt.Compare(a.Payload.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// Nearest returns the closest documents within the owner scope.
func (d *Driver) Nearest(ctx context.Context, embedding []float32, scope memory.OwnerScope, limit int) ([]vector.QueryResult, error) {
	return d.Search(ctx, embedding, vector.ScopeFilter(scope), limit)
}

// UpdatePayload rewrites a document's record and metadata, keeping its
// embedding.
func (d *Driver) UpdatePayload(ctx context.Context, id string, payload memory.Record) error {
	if _, err := d.Get(ctx, id); err != nil {
		return err
	}

	if err := d.upsert(ctx, "update", id, nil, payload); err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	return nil
}

// Get retrieves a document by id.
func (d *Driver) Get(ctx context.Context, id string) (*vector.Document, error) {
	docs, err := d.get(ctx, chromaGetRequest{IDs: []string{id}})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	return &docs[0], nil
}

// Delete removes a document by id, reporting whether it existed.
func (d *Driver) Delete(ctx context.Context, id string) (bool, error) {
	_, err := d.Get(ctx, id)
	if errors.Is(err, vector.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	err = d.do(ctx, http.MethodPost, d.recordsPath("delete"), chromaDeleteRequest{IDs: []string{id}}, nil)
	if err != nil {
		return false, fmt.Errorf("deleting document %s: %w", id, err)
	}

	d.logger.Debug("deleted document from chroma", "id", id)
	return true, nil
}

// Truncate drops and recreates the collection. Used by tests for isolation.
func (d *Driver) Truncate(ctx context.Context) error {
	err := d.do(ctx, http.MethodDelete, collectionsPath+"/"+d.collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}

	id, err := d.getOrCreateCollection(ctx)
	if err != nil {
		return err
	}
	d.collectionID = id
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ vector.Driver = (*Driver)(nil)
