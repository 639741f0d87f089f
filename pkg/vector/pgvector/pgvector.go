// Package pgvector provides a PostgreSQL vector driver using the pgvector
// extension over a pgx connection pool.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/vector/sqlfilter"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "recall_memories"

// Config holds configuration for the pgvector driver.
type Config struct {
	// DSN is the PostgreSQL connection string. Required.
	DSN string

	// Table is the memories table. Defaults to DefaultTable.
	Table string

	// Dimensions is the embedding size of the vector column. Required.
	Dimensions uint
}

// Driver implements vector.Driver on PostgreSQL with pgvector.
type Driver struct {
	pool       *pgxpool.Pool
	table      string
	dimensions uint
	logger     *slog.Logger
}

// NewDriver connects, ensures the pgvector extension and creates the table.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.DSN == "" {
		return nil, errors.New("postgres DSN is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("pgvector embedding dimensions cannot be 0, must be configured")
	}

	table := c.Table
	if table == "" {
		table = DefaultTable
	}

	pool, err := pgxpool.New(ctx, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		pool:       pool,
		table:      pgx.Identifier{table}.Sanitize(),
		dimensions: c.Dimensions,
		logger:     logger,
	}

	if err := d.migrate(ctx, table); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("pgvector vector driver initialized",
		"table", table,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func (d *Driver) migrate(ctx context.Context, table string) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			project_id       TEXT NOT NULL DEFAULT '',
			tags             TEXT[] NOT NULL DEFAULT '{}',
			people_mentioned TEXT[] NOT NULL DEFAULT '{}',
			topic_category   TEXT NOT NULL DEFAULT '',
			created_at_unix  BIGINT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL,
			t_year           INTEGER NOT NULL,
			t_month          INTEGER NOT NULL,
			t_day            INTEGER NOT NULL,
			t_hour           INTEGER NOT NULL,
			t_minute         INTEGER NOT NULL,
			t_quarter        INTEGER NOT NULL,
			t_day_of_week    TEXT NOT NULL,
			t_day_of_year    INTEGER NOT NULL,
			t_week_of_year   INTEGER NOT NULL,
			t_is_weekend     BOOLEAN NOT NULL,
			payload          JSONB NOT NULL,
			embedding        vector(%d) NOT NULL
		)`, d.table, d.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (user_id, project_id, created_at DESC)`,
			pgx.Identifier{table + "_owner_idx"}.Sanitize(), d.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (tags)`,
			pgx.Identifier{table + "_tags_idx"}.Sanitize(), d.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (people_mentioned)`,
			pgx.Identifier{table + "_people_idx"}.Sanitize(), d.table),
	}

	for _, stmt := range stmts {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrating pgvector schema: %w", err)
		}
	}
	return nil
}

// encodeVector renders an embedding in pgvector's text input format.
func encodeVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// decodeVector parses pgvector's text output format.
func decodeVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return []float32{}, nil
	}

	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parsing vector element %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func (d *Driver) checkDimensions(embedding []float32) error {
	if uint(len(embedding)) != d.dimensions {
		return fmt.Errorf("embedding has %d dimensions, driver expects %d", len(embedding), d.dimensions)
	}
	return nil
}

// columns returns the values for $2..$19 of insert and update statements.
func columns(r memory.Record) ([]any, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	t := r.Temporal
	return []any{
		r.UserID, r.ProjectID, nonNil(r.Tags), nonNil(r.PeopleMentioned), r.TopicCategory,
		r.CreatedAt.Unix(), r.CreatedAt,
		t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Quarter, t.DayOfWeek,
		t.DayOfYear, t.WeekOfYear, t.IsWeekend,
		payload,
	}, nil
}

const assignments = `
	user_id = $2, project_id = $3, tags = $4, people_mentioned = $5, topic_category = $6,
	created_at_unix = $7, created_at = $8,
	t_year = $9, t_month = $10, t_day = $11, t_hour = $12, t_minute = $13, t_quarter = $14,
	t_day_of_week = $15, t_day_of_year = $16, t_week_of_year = $17, t_is_weekend = $18,
	payload = $19`

// Insert stores a document, replacing any document with the same id.
func (d *Driver) Insert(ctx context.Context, doc vector.Document) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}
	if err := d.checkDimensions(doc.Embedding); err != nil {
		return err
	}

	cols, err := columns(doc.Payload)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", doc.ID, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, project_id, tags, people_mentioned, topic_category,
			created_at_unix, created_at,
			t_year, t_month, t_day, t_hour, t_minute, t_quarter,
			t_day_of_week, t_day_of_year, t_week_of_year, t_is_weekend,
			payload, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20::vector)
		ON CONFLICT (id) DO UPDATE SET %s, embedding = EXCLUDED.embedding`,
		d.table, assignments)

	args := make([]any, 0, len(cols)+2)
	args = append(args, doc.ID)
	args = append(args, cols...)
	args = append(args, encodeVector(doc.Embedding))

	if _, err := d.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}

	d.logger.Debug("added document to pgvector", "id", doc.ID)
	return nil
}

// Search ranks rows matching filter by cosine similarity.
func (d *Driver) Search(ctx context.Context, embedding []float32, filter vector.Filter, limit int) ([]vector.QueryResult, error) {
	if err := d.checkDimensions(embedding); err != nil {
		return nil, err
	}

	where, whereArgs, err := sqlfilter.Compile(filter, sqlfilter.Postgres, 1)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT payload, embedding::text, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		WHERE %s
		ORDER BY embedding <=> $1::vector, created_at DESC, id
		LIMIT $%d`, d.table, where, len(whereArgs)+2)

	args := make([]any, 0, len(whereArgs)+2)
	args = append(args, encodeVector(embedding))
	args = append(args, whereArgs...)
	args = append(args, pgLimit(limit))

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			payload []byte
			emb     string
			score   float64
		)
		if err := rows.Scan(&payload, &emb, &score); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		doc, err := decode(payload, emb)
		if err != nil {
			return nil, err
		}
		results = append(results, vector.QueryResult{Document: doc, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried pgvector",
		"filter", filter.String(),
		"results", len(results),
	)

	return results, nil
}

// List returns rows matching filter, newest first.
func (d *Driver) List(ctx context.Context, filter vector.Filter, limit int) ([]vector.Document, error) {
	where, whereArgs, err := sqlfilter.Compile(filter, sqlfilter.Postgres, 0)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT payload, embedding::text
		FROM %s
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d`, d.table, where, len(whereArgs)+1)

	rows, err := d.pool.Query(ctx, query, append(whereArgs, pgLimit(limit))...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []vector.Document
	for rows.Next() {
		var (
			payload []byte
			emb     string
		)
		if err := rows.Scan(&payload, &emb); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		doc, err := decode(payload, emb)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Nearest returns the closest rows within the owner scope.
func (d *Driver) Nearest(ctx context.Context, embedding []float32, scope memory.OwnerScope, limit int) ([]vector.QueryResult, error) {
	return d.Search(ctx, embedding, vector.ScopeFilter(scope), limit)
}

// UpdatePayload rewrites a row's payload and filter columns.
func (d *Driver) UpdatePayload(ctx context.Context, id string, payload memory.Record) error {
	cols, err := columns(payload)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", id, err)
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, d.table, assignments)
	tag, err := d.pool.Exec(ctx, query, append([]any{id}, cols...)...)
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	return nil
}

// Get retrieves a document by id.
func (d *Driver) Get(ctx context.Context, id string) (*vector.Document, error) {
	var (
		payload []byte
		emb     string
	)
	err := d.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT payload, embedding::text FROM %s WHERE id = $1`, d.table), id,
	).Scan(&payload, &emb)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", id, err)
	}

	doc, err := decode(payload, emb)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes a document by id.
func (d *Driver) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := d.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, d.table), id)
	if err != nil {
		return false, fmt.Errorf("deleting document %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Truncate removes every row. Used by tests for isolation.
func (d *Driver) Truncate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, d.table))
	return err
}

// Close closes the pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

func decode(payload []byte, emb string) (vector.Document, error) {
	var r memory.Record
	if err := json.Unmarshal(payload, &r); err != nil {
		return vector.Document{}, fmt.Errorf("decoding payload: %w", err)
	}

	v, err := decodeVector(emb)
	if err != nil {
		return vector.Document{}, err
	}
	return vector.Document{ID: r.ID, Embedding: v, Payload: r}, nil
}

// pgLimit maps a non-positive limit to LIMIT NULL, which Postgres treats as
// no limit.
func pgLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ vector.Driver = (*Driver)(nil)
