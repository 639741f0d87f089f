// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
//
// Each memory is one row: the filterable fields as plain columns, the record
// as a JSON payload and the embedding as a little-endian float32 BLOB.
// Search is exact: candidate rows are narrowed by the SQL WHERE compiled from
// the filter and ranked with sqlite-vec's vec_distance_cosine.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/vector/sqlfilter"
)

// SQLiteVecDriver implements vector.Driver using SQLite with sqlite-vec.
type SQLiteVecDriver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// Must match the embedder's output.
	Dimensions uint
}

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	project_id       TEXT NOT NULL DEFAULT '',
	tags             TEXT NOT NULL DEFAULT '[]',
	people_mentioned TEXT NOT NULL DEFAULT '[]',
	topic_category   TEXT NOT NULL DEFAULT '',
	created_at_unix  INTEGER NOT NULL,
	created_at_ns    INTEGER NOT NULL,
	t_year           INTEGER NOT NULL,
	t_month          INTEGER NOT NULL,
	t_day            INTEGER NOT NULL,
	t_hour           INTEGER NOT NULL,
	t_minute         INTEGER NOT NULL,
	t_quarter        INTEGER NOT NULL,
	t_day_of_week    TEXT NOT NULL,
	t_day_of_year    INTEGER NOT NULL,
	t_week_of_year   INTEGER NOT NULL,
	t_is_weekend     INTEGER NOT NULL,
	payload          TEXT NOT NULL,
	embedding        BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_owner
	ON memories(user_id, project_id, created_at_ns DESC);
`

// NewSQLiteVecDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewSQLiteVecDriver(c Config, logger *slog.Logger) (*SQLiteVecDriver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating memories table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", dimensions,
		"vec_version", vecVersion,
	)

	return &SQLiteVecDriver{
		db:         db,
		dimensions: dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func (d *SQLiteVecDriver) checkDimensions(embedding []float32) error {
	if uint(len(embedding)) != d.dimensions {
		return fmt.Errorf("embedding has %d dimensions, driver expects %d", len(embedding), d.dimensions)
	}
	return nil
}

// columns returns the filterable column values for a record, in the order
// used by insertSQL and updateSQL.
func columns(r memory.Record) ([]any, error) {
	tags, err := json.Marshal(nonNil(r.Tags))
	if err != nil {
		return nil, err
	}
	people, err := json.Marshal(nonNil(r.PeopleMentioned))
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	t := r.Temporal
	return []any{
		r.UserID, r.ProjectID, string(tags), string(people), r.TopicCategory,
		r.CreatedAt.Unix(), r.CreatedAt.UnixNano(),
		t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Quarter, t.DayOfWeek,
		t.DayOfYear, t.WeekOfYear, t.IsWeekend,
		string(payload),
	}, nil
}

const columnList = `user_id, project_id, tags, people_mentioned, topic_category,
	created_at_unix, created_at_ns,
	t_year, t_month, t_day, t_hour, t_minute, t_quarter, t_day_of_week,
	t_day_of_year, t_week_of_year, t_is_weekend,
	payload`

const insertSQL = `
	INSERT INTO memories (id, ` + columnList + `, embedding)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		project_id = excluded.project_id,
		tags = excluded.tags,
		people_mentioned = excluded.people_mentioned,
		topic_category = excluded.topic_category,
		created_at_unix = excluded.created_at_unix,
		created_at_ns = excluded.created_at_ns,
		t_year = excluded.t_year,
		t_month = excluded.t_month,
		t_day = excluded.t_day,
		t_hour = excluded.t_hour,
		t_minute = excluded.t_minute,
		t_quarter = excluded.t_quarter,
		t_day_of_week = excluded.t_day_of_week,
		t_day_of_year = excluded.t_day_of_year,
		t_week_of_year = excluded.t_week_of_year,
		t_is_weekend = excluded.t_is_weekend,
		payload = excluded.payload,
		embedding = excluded.embedding
`

const updateSQL = `
	UPDATE memories SET
		user_id = ?, project_id = ?, tags = ?, people_mentioned = ?, topic_category = ?,
		created_at_unix = ?, created_at_ns = ?,
		t_year = ?, t_month = ?, t_day = ?, t_hour = ?, t_minute = ?, t_quarter = ?, t_day_of_week = ?,
		t_day_of_year = ?, t_week_of_year = ?, t_is_weekend = ?,
		payload = ?
	WHERE id = ?
`

// Insert stores a document. If a document with the same ID already exists,
// it is replaced.
func (d *SQLiteVecDriver) Insert(ctx context.Context, doc vector.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if err := d.checkDimensions(doc.Embedding); err != nil {
		return err
	}

	cols, err := columns(doc.Payload)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", doc.ID, err)
	}

	args := make([]any, 0, len(cols)+2)
	args = append(args, doc.ID)
	args = append(args, cols...)
	args = append(args, serializeFloat32(doc.Embedding))

	if _, err := d.db.ExecContext(ctx, insertSQL, args...); err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}

	d.logger.Debug("added document to sqlite-vec", "id", doc.ID)
	return nil
}

// Search ranks the rows matching filter by cosine similarity to embedding.
func (d *SQLiteVecDriver) Search(ctx context.Context, embedding []float32, filter vector.Filter, limit int) ([]vector.QueryResult, error) {
	if err := d.checkDimensions(embedding); err != nil {
		return nil, err
	}

	where, whereArgs, err := sqlfilter.Compile(filter, sqlfilter.SQLite, 1)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT payload, embedding, 1.0 - vec_distance_cosine(embedding, ?) AS score
		FROM memories
		WHERE ` + where + `
		ORDER BY score DESC, created_at_ns DESC, id ASC
		LIMIT ?`

	args := make([]any, 0, len(whereArgs)+2)
	args = append(args, serializeFloat32(embedding))
	args = append(args, whereArgs...)
	args = append(args, sqlLimit(limit))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			payload string
			blob    []byte
			score   float64
		)
		if err := rows.Scan(&payload, &blob, &score); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		doc, err := decode(payload, blob)
		if err != nil {
			return nil, err
		}
		results = append(results, vector.QueryResult{Document: doc, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		"filter", filter.String(),
		"results", len(results),
	)

	return results, nil
}

// List returns the rows matching filter, newest first.
func (d *SQLiteVecDriver) List(ctx context.Context, filter vector.Filter, limit int) ([]vector.Document, error) {
	where, whereArgs, err := sqlfilter.Compile(filter, sqlfilter.SQLite, 0)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT payload, embedding
		FROM memories
		WHERE ` + where + `
		ORDER BY created_at_ns DESC, id ASC
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query, append(whereArgs, sqlLimit(limit))...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []vector.Document
	for rows.Next() {
		var (
			payload string
			blob    []byte
		)
		if err := rows.Scan(&payload, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		doc, err := decode(payload, blob)
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
func (d *SQLiteVecDriver) Nearest(ctx context.Context, embedding []float32, scope memory.OwnerScope, limit int) ([]vector.QueryResult, error) {
	return d.Search(ctx, embedding, vector.ScopeFilter(scope), limit)
}

// UpdatePayload rewrites a row's payload and filter columns, keeping its
// embedding.
func (d *SQLiteVecDriver) UpdatePayload(ctx context.Context, id string, payload memory.Record) error {
	cols, err := columns(payload)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", id, err)
	}

	res, err := d.db.ExecContext(ctx, updateSQL, append(cols, id)...)
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	return nil
}

// Get retrieves a document by its ID.
func (d *SQLiteVecDriver) Get(ctx context.Context, id string) (*vector.Document, error) {
	var (
		payload string
		blob    []byte
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT payload, embedding FROM memories WHERE id = ?`, id,
	).Scan(&payload, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", id, err)
	}

	doc, err := decode(payload, blob)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes a document by its ID.
func (d *SQLiteVecDriver) Delete(ctx context.Context, id string) (bool, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting document %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting document %s: %w", id, err)
	}

	d.logger.Debug("deleted document from sqlite-vec", "id", id, "deleted", n > 0)
	return n > 0, nil
}

// Close closes the database connection.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}

func decode(payload string, blob []byte) (vector.Document, error) {
	var r memory.Record
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return vector.Document{}, fmt.Errorf("decoding payload: %w", err)
	}

	emb, err := deserializeFloat32(blob)
	if err != nil {
		return vector.Document{}, err
	}

	return vector.Document{ID: r.ID, Embedding: emb, Payload: r}, nil
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ vector.Driver = (*SQLiteVecDriver)(nil)
