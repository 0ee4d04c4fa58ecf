// Package pgvector stores chunk records in PostgreSQL using the pgvector
// extension and lets the database rank them by cosine distance.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"pdfrag/internal/domain"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS pdfrag_chunks (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		source     TEXT NOT NULL,
		ordinal    INTEGER NOT NULL,
		text       TEXT NOT NULL,
		embedding  vector NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pdfrag_chunks_source ON pdfrag_chunks (collection, source)`,
}

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ domain.VectorIndex = (*Store)(nil)

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dsn == "" {
		return nil, fmt.Errorf("%w: pgvector backend requires a DSN", domain.ErrInvalidConfig)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, q := range migrations {
		if _, err := db.ExecContext(ctx, q); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GetOrCreateCollection(_ context.Context, name string) (domain.Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty collection name", domain.ErrInvalidConfig)
	}
	return &collection{db: s.db, name: name}, nil
}

type collection struct {
	db   *sql.DB
	name string
}

func (c *collection) Name() string { return c.name }

func (c *collection) dimension(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT vector_dims(embedding) FROM pdfrag_chunks WHERE collection = $1 LIMIT 1`, c.name).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func (c *collection) Upsert(ctx context.Context, records []domain.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim, err := c.dimension(ctx)
	if err != nil {
		return fmt.Errorf("reading collection dimension: %w", err)
	}
	for _, r := range records {
		if dim == 0 {
			dim = len(r.Embedding)
		}
		if len(r.Embedding) != dim {
			return fmt.Errorf("%w: record %s has %d, collection has %d", domain.ErrDimensionMismatch, r.ID, len(r.Embedding), dim)
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
		INSERT INTO pdfrag_chunks (collection, id, source, ordinal, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (collection, id) DO UPDATE SET
			source = EXCLUDED.source,
			ordinal = EXCLUDED.ordinal,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding
	`
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, query,
			c.name,
			r.ID,
			r.Chunk.Source,
			r.Chunk.Ordinal,
			r.Chunk.Text,
			pgvector.NewVector(r.Embedding),
		); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (c *collection) Query(ctx context.Context, embedding []float32, k int) ([]domain.Hit, error) {
	if k <= 0 {
		return []domain.Hit{}, nil
	}
	// <=> yields NaN when either side is the zero vector; rank those last at 1.
	const query = `
		SELECT id, source, ordinal, text, COALESCE(NULLIF(embedding <=> $2, 'NaN'::float8), 1) AS distance
		FROM pdfrag_chunks
		WHERE collection = $1
		ORDER BY distance, id
		LIMIT $3
	`
	rows, err := c.db.QueryContext(ctx, query, c.name, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	hits := []domain.Hit{}
	for rows.Next() {
		var h domain.Hit
		if err := rows.Scan(&h.ID, &h.Source, &h.Ordinal, &h.Text, &h.Distance); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (c *collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pdfrag_chunks WHERE collection = $1`, c.name).Scan(&n)
	return n, err
}

func (c *collection) PruneSource(ctx context.Context, source string, keep []string) (int, error) {
	if keep == nil {
		keep = []string{}
	}
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM pdfrag_chunks WHERE collection = $1 AND source = $2 AND NOT (id = ANY($3))`,
		c.name, source, pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", source, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
