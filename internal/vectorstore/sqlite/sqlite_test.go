package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

func record(source string, ordinal int, text string, vec ...float32) domain.ChunkRecord {
	return domain.NewChunkRecord(domain.Chunk{Source: source, Ordinal: ordinal, Text: text}, vec)
}

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEmbeddingRoundTrip(t *testing.T) {
	v := []float32{0.25, -1, 3.5, 0}
	assert.Equal(t, v, decodeEmbedding(encodeEmbedding(v)))
	assert.Nil(t, decodeEmbedding([]byte{1, 2, 3}))
}

func TestCollection_UpsertQueryCount(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, t.TempDir())
	c, err := s.GetOrCreateCollection(ctx, "pdfs")
	require.NoError(t, err)

	hits, err := c.Query(ctx, []float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, hits)

	recs := []domain.ChunkRecord{
		record("a.pdf", 0, "alpha", 1, 0),
		record("a.pdf", 1, "beta", 0, 1),
		record("b.pdf", 0, "gamma", 0.7, 0.7),
	}
	require.NoError(t, c.Upsert(ctx, recs))
	require.NoError(t, c.Upsert(ctx, recs))

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err = c.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "alpha", hits[0].Text)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)
	assert.Equal(t, "gamma", hits[1].Text)
	assert.Equal(t, "b.pdf", hits[1].Source)

	err = c.Upsert(ctx, []domain.ChunkRecord{record("c.pdf", 0, "wide", 1, 0, 0)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = c.Query(ctx, []float32{1, 0, 0}, 2)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	hits, err = c.Query(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1.0, hits[0].Distance)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	c, err := s.GetOrCreateCollection(ctx, "pdfs")
	require.NoError(t, err)
	require.NoError(t, c.Upsert(ctx, []domain.ChunkRecord{record("a.pdf", 0, "alpha", 1, 0)}))
	require.NoError(t, s.Close())

	s2 := openTestStore(t, dir)
	c2, err := s2.GetOrCreateCollection(ctx, "pdfs")
	require.NoError(t, err)
	n, err := c2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	other, err := s2.GetOrCreateCollection(ctx, "other")
	require.NoError(t, err)
	n, err = other.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCollection_PruneSource(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, t.TempDir())
	c, err := s.GetOrCreateCollection(ctx, "pdfs")
	require.NoError(t, err)

	old := record("a.pdf", 0, "old", 1, 0)
	fresh := record("a.pdf", 0, "fresh", 1, 0)
	other := record("b.pdf", 0, "other", 0, 1)
	require.NoError(t, c.Upsert(ctx, []domain.ChunkRecord{old, fresh, other}))

	removed, err := c.PruneSource(ctx, "a.pdf", []string{fresh.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = c.PruneSource(ctx, "b.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_RejectsEmptyCollectionName(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	_, err := s.GetOrCreateCollection(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
