package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestEmbedder_Basics(t *testing.T) {
	e := NewEmbedder(0)
	assert.Equal(t, DefaultDimension, e.Dimension())
	assert.Equal(t, "hashing-384", e.Name())
	assert.Equal(t, 64, NewEmbedder(64).Dimension())
}

func TestEmbedder_UnitVectorsInOrder(t *testing.T) {
	e := NewEmbedder(128)
	vecs, err := e.Embed(context.Background(), []string{"Retrieval augmented generation", "PDF text extraction", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 128)
	}
	assert.InDelta(t, 1.0, norm(vecs[0]), 1e-5)
	assert.InDelta(t, 1.0, norm(vecs[1]), 1e-5)
	assert.Equal(t, 0.0, norm(vecs[2]))
}

func TestEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, err := NewEmbedder(256).Embed(ctx, []string{"The quick brown fox"})
	require.NoError(t, err)
	b, err := NewEmbedder(256).Embed(ctx, []string{"the QUICK brown   fox!"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedder_SimilarTextsAreCloser(t *testing.T) {
	e := NewEmbedder(DefaultDimension)
	vecs, err := e.Embed(context.Background(), []string{
		"transformer models for machine translation",
		"machine translation with transformer models",
		"baking sourdough bread at home",
	})
	require.NoError(t, err)
	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestEmbedder_StopwordsOnly(t *testing.T) {
	vecs, err := NewEmbedder(32).Embed(context.Background(), []string{"the and of"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, norm(vecs[0]))
}
