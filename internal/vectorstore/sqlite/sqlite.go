// Package sqlite persists chunk records in a single SQLite file and answers
// queries with a brute-force cosine scan.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"pdfrag/internal/domain"
	"pdfrag/internal/vectorstore/distance"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	source     TEXT NOT NULL,
	ordinal    INTEGER NOT NULL,
	text       TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks (collection, source);
`

// Store is a SQLite-backed vector index rooted at a directory.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var _ domain.VectorIndex = (*Store)(nil)

// Open creates or reopens the index database at <dir>/index.db.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "./vector_store"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	dbPath := filepath.Join(dir, "index.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	logger.Debug("sqlite index opened", zap.String("path", dbPath))
	return &Store{db: db, path: dbPath, logger: logger}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// GetOrCreateCollection returns a handle for name. Collections exist implicitly
// once they hold a row.
func (s *Store) GetOrCreateCollection(_ context.Context, name string) (domain.Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty collection name", domain.ErrInvalidConfig)
	}
	return &collection{store: s, name: name}, nil
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Name() string { return c.name }

func (c *collection) Upsert(ctx context.Context, records []domain.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim, err := c.dimension(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		if dim == 0 {
			dim = len(r.Embedding)
		}
		if len(r.Embedding) != dim {
			return fmt.Errorf("%w: record %s has %d, collection has %d", domain.ErrDimensionMismatch, r.ID, len(r.Embedding), dim)
		}
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, id, source, ordinal, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			source = excluded.source,
			ordinal = excluded.ordinal,
			text = excluded.text,
			embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, c.name, r.ID, r.Chunk.Source, r.Chunk.Ordinal, r.Chunk.Text, encodeEmbedding(r.Embedding)); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (c *collection) dimension(ctx context.Context) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx,
		`SELECT length(embedding) / 4 FROM chunks WHERE collection = ? LIMIT 1`, c.name).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection dimension: %w", err)
	}
	return n, nil
}

func (c *collection) Query(ctx context.Context, embedding []float32, k int) ([]domain.Hit, error) {
	if k <= 0 {
		return []domain.Hit{}, nil
	}
	rows, err := c.store.db.QueryContext(ctx,
		`SELECT id, source, ordinal, text, embedding FROM chunks WHERE collection = ? ORDER BY rowid`, c.name)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var records []domain.ChunkRecord
	for rows.Next() {
		var (
			r    domain.ChunkRecord
			blob []byte
		)
		if err := rows.Scan(&r.ID, &r.Chunk.Source, &r.Chunk.Ordinal, &r.Chunk.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		r.Embedding = decodeEmbedding(blob)
		if len(r.Embedding) != len(embedding) {
			return nil, fmt.Errorf("%w: query has %d, collection has %d", domain.ErrDimensionMismatch, len(embedding), len(r.Embedding))
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return distance.TopK(records, embedding, k), nil
}

func (c *collection) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, c.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (c *collection) PruneSource(ctx context.Context, source string, keep []string) (int, error) {
	query := `DELETE FROM chunks WHERE collection = ? AND source = ?`
	args := []any{c.name, source}
	if len(keep) > 0 {
		query += ` AND id NOT IN (?` + strings.Repeat(",?", len(keep)-1) + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}
	res, err := c.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(data []byte) []float32 {
	if len(data)%4 != 0 {
		return nil
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
