package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pdfrag/internal/domain"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 1.0, Cosine([]float32{1}, []float32{1, 0}))
}

func TestTopK(t *testing.T) {
	records := []domain.ChunkRecord{
		{ID: "far", Chunk: domain.Chunk{Source: "a.pdf", Ordinal: 0, Text: "far"}, Embedding: []float32{0, 1}},
		{ID: "near", Chunk: domain.Chunk{Source: "a.pdf", Ordinal: 1, Text: "near"}, Embedding: []float32{1, 0}},
		{ID: "mid", Chunk: domain.Chunk{Source: "b.pdf", Ordinal: 0, Text: "mid"}, Embedding: []float32{1, 1}},
	}
	hits := TopK(records, []float32{1, 0}, 2)
	assert.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].ID)
	assert.Equal(t, "mid", hits[1].ID)
	assert.Equal(t, "b.pdf", hits[1].Source)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)

	assert.Len(t, TopK(records, []float32{1, 0}, 10), 3)
	assert.Empty(t, TopK(records, []float32{1, 0}, 0))
	assert.Empty(t, TopK(nil, []float32{1, 0}, 3))
}
