// Package qdrant provides a vector driver backed by a Qdrant collection over
// its gRPC API.
package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/google/uuid"
	qdrantgo "github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
)

const (
	// DefaultCollection is used when no collection name is configured.
	DefaultCollection = "recall_memories"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// recordKey holds the JSON encoded memory record in each point payload.
	recordKey = "record"

	// createdAtNanosKey orders List results.
	createdAtNanosKey = "created_at_ns"
)

// pointNamespace derives Qdrant point ids from memory ids, since Qdrant only
// accepts UUIDs or unsigned integers.
var pointNamespace = uuid.MustParse("6f1d3c4e-2b7a-4f0e-9a51-3d2c8e7b9f10")

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Addr is host[:port] of the gRPC endpoint. The port defaults to 6334.
	Addr string

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool

	// Collection is the collection name. Defaults to DefaultCollection.
	Collection string

	// Dimensions is the embedding size of the collection. Required.
	Dimensions uint
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client     *qdrantgo.Client
	collection string
	dimensions uint
	logger     *slog.Logger
}

// NewDriver connects to Qdrant and ensures the collection and its payload
// indexes exist.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Addr == "" {
		return nil, errors.New("qdrant address is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, port, err := splitAddr(c.Addr)
	if err != nil {
		return nil, err
	}

	collection := c.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrantgo.NewClient(&qdrantgo.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: collection,
		dimensions: c.Dimensions,
		logger:     logger,
	}

	if err := d.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("qdrant vector driver initialized",
		"addr", c.Addr,
		"collection", collection,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port given.
		return addr, DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}

func (d *Driver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrantgo.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrantgo.NewVectorsConfig(&qdrantgo.VectorParams{
			Size:     uint64(d.dimensions),
			Distance: qdrantgo.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", d.collection, err)
	}

	indexes := map[string]qdrantgo.FieldType{
		string(vector.FieldUserID):    qdrantgo.FieldType_FieldTypeKeyword,
		string(vector.FieldProjectID): qdrantgo.FieldType_FieldTypeKeyword,
		string(vector.FieldTags):      qdrantgo.FieldType_FieldTypeKeyword,
		string(vector.FieldPeople):    qdrantgo.FieldType_FieldTypeKeyword,
		string(vector.FieldTopic):     qdrantgo.FieldType_FieldTypeKeyword,
		string(vector.FieldCreatedAt): qdrantgo.FieldType_FieldTypeInteger,
		createdAtNanosKey:             qdrantgo.FieldType_FieldTypeInteger,
	}
	for field, kind := range indexes {
		_, err := d.client.CreateFieldIndex(ctx, &qdrantgo.CreateFieldIndexCollection{
			CollectionName: d.collection,
			FieldName:      field,
			FieldType:      kind.Enum(),
			Wait:           qdrantgo.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("creating %s index: %w", field, err)
		}
	}

	d.logger.Debug("created qdrant collection", "collection", d.collection)
	return nil
}

func pointID(id string) *qdrantgo.PointId {
	return qdrantgo.NewID(uuid.NewSHA1(pointNamespace, []byte(id)).String())
}

func (d *Driver) checkDimensions(embedding []float32) error {
	if uint(len(embedding)) != d.dimensions {
		return fmt.Errorf("embedding has %d dimensions, driver expects %d", len(embedding), d.dimensions)
	}
	return nil
}

// payload flattens the filterable fields next to the encoded record.
func payload(r memory.Record) (map[string]*qdrantgo.Value, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	t := r.Temporal
	return qdrantgo.TryValueMap(map[string]any{
		recordKey:                     string(raw),
		createdAtNanosKey:             r.CreatedAt.UnixNano(),
		string(vector.FieldUserID):    r.UserID,
		string(vector.FieldProjectID): r.ProjectID,
		string(vector.FieldTags):      anySlice(r.Tags),
		string(vector.FieldPeople):    anySlice(r.PeopleMentioned),
		string(vector.FieldTopic):     r.TopicCategory,
		string(vector.FieldCreatedAt): r.CreatedAt.Unix(),
		"temporal": map[string]any{
			"year":         t.Year,
			"month":        t.Month,
			"day":          t.Day,
			"hour":         t.Hour,
			"minute":       t.Minute,
			"quarter":      t.Quarter,
			"day_of_week":  t.DayOfWeek,
			"day_of_year":  t.DayOfYear,
			"week_of_year": t.WeekOfYear,
			"is_weekend":   t.IsWeekend,
		},
	})
}

func anySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func decode(p map[string]*qdrantgo.Value, emb []float32) (vector.Document, error) {
	raw := p[recordKey].GetStringValue()
	if raw == "" {
		return vector.Document{}, errors.New("point payload has no record")
	}

	var r memory.Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return vector.Document{}, fmt.Errorf("decoding payload: %w", err)
	}
	return vector.Document{ID: r.ID, Embedding: emb, Payload: r}, nil
}

// Insert upserts a point for the document.
func (d *Driver) Insert(ctx context.Context, doc vector.Document) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}
	if err := d.checkDimensions(doc.Embedding); err != nil {
		return err
	}

	p, err := payload(doc.Payload)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", doc.ID, err)
	}

	_, err = d.client.Upsert(ctx, &qdrantgo.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrantgo.PtrOf(true),
		Points: []*qdrantgo.PointStruct{{
			Id:      pointID(doc.ID),
			Vectors: qdrantgo.NewVectors(doc.Embedding...),
			Payload: p,
		}},
	})
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}

	d.logger.Debug("added document to qdrant", "id", doc.ID)
	return nil
}

// Search queries the collection for the points nearest to embedding.
func (d *Driver) Search(ctx context.Context, embedding []float32, filter vector.Filter, limit int) ([]vector.QueryResult, error) {
	if err := d.checkDimensions(embedding); err != nil {
		return nil, err
	}

	qf, err := CompileFilter(filter)
	if err != nil {
		return nil, err
	}

	req := &qdrantgo.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrantgo.NewQuery(embedding...),
		Filter:         qf,
		WithPayload:    qdrantgo.NewWithPayload(true),
		WithVectors:    qdrantgo.NewWithVectors(true),
	}
	if limit > 0 {
		req.Limit = qdrantgo.PtrOf(uint64(limit))
	}

	points, err := d.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("querying qdrant: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		doc, err := decode(p.GetPayload(), p.GetVectors().GetVector().GetData())
		if err != nil {
			return nil, err
		}
		results = append(results, vector.QueryResult{Document: doc, Score: float64(p.GetScore())})
	}

	d.logger.Debug("queried qdrant",
		"filter", filter.String(),
		"results", len(results),
	)

	return results, nil
}

// List scrolls points matching filter, newest first.
func (d *Driver) List(ctx context.Context, filter vector.Filter, limit int) ([]vector.Document, error) {
	qf, err := CompileFilter(filter)
	if err != nil {
		return nil, err
	}

	req := &qdrantgo.ScrollPoints{
		CollectionName: d.collection,
		Filter:         qf,
		WithPayload:    qdrantgo.NewWithPayload(true),
		WithVectors:    qdrantgo.NewWithVectors(true),
		OrderBy: &qdrantgo.OrderBy{
			Key:       createdAtNanosKey,
			Direction: qdrantgo.Direction_Desc.Enum(),
		},
	}
	if limit > 0 {
		req.Limit = qdrantgo.PtrOf(uint32(limit))
	}

	points, err := d.client.Scroll(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scrolling qdrant: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		doc, err := decode(p.GetPayload(), p.GetVectors().GetVector().GetData())
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Nearest returns the closest points within the owner scope.
func (d *Driver) Nearest(ctx context.Context, embedding []float32, scope memory.OwnerScope, limit int) ([]vector.QueryResult, error) {
	return d.Search(ctx, embedding, vector.ScopeFilter(scope), limit)
}

// UpdatePayload overwrites a point's payload, keeping its vector.
func (d *Driver) UpdatePayload(ctx context.Context, id string, record memory.Record) error {
	if _, err := d.Get(ctx, id); err != nil {
		return err
	}

	p, err := payload(record)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", id, err)
	}

	_, err = d.client.OverwritePayload(ctx, &qdrantgo.SetPayloadPoints{
		CollectionName: d.collection,
		Wait:           qdrantgo.PtrOf(true),
		Payload:        p,
		PointsSelector: qdrantgo.NewPointsSelector(pointID(id)),
	})
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	return nil
}

// Get retrieves a document by id.
func (d *Driver) Get(ctx context.Context, id string) (*vector.Document, error) {
	points, err := d.client.Get(ctx, &qdrantgo.GetPoints{
		CollectionName: d.collection,
		Ids:            []*qdrantgo.PointId{pointID(id)},
		WithPayload:    qdrantgo.NewWithPayload(true),
		WithVectors:    qdrantgo.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}

	doc, err := decode(points[0].GetPayload(), points[0].GetVectors().GetVector().GetData())
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes a document by id.
func (d *Driver) Delete(ctx context.Context, id string) (bool, error) {
	_, err := d.Get(ctx, id)
	if errors.Is(err, vector.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	_, err = d.client.Delete(ctx, &qdrantgo.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrantgo.PtrOf(true),
		Points:         qdrantgo.NewPointsSelector(pointID(id)),
	})
	if err != nil {
		return false, fmt.Errorf("deleting document %s: %w", id, err)
	}
	return true, nil
}

// Truncate drops and recreates the collection. Used by tests for isolation.
func (d *Driver) Truncate(ctx context.Context) error {
	if err := d.client.DeleteCollection(ctx, d.collection); err != nil {
		return fmt.Errorf("dropping collection %s: %w", d.collection, err)
	}
	return d.ensureCollection(ctx)
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ vector.Driver = (*Driver)(nil)
