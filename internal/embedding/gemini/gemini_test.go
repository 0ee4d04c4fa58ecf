package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

type fakeGemini struct {
	mu      sync.Mutex
	batches []int
	paths   []string
	short   bool
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Requests []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.batches = append(f.batches, len(body.Requests))
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	n := len(body.Requests)
	if f.short {
		n--
	}
	type values struct {
		Values []float32 `json:"values"`
	}
	resp := struct {
		Embeddings []values `json:"embeddings"`
	}{Embeddings: make([]values, n)}
	for i := range resp.Embeddings {
		resp.Embeddings[i] = values{Values: []float32{3, 4}}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestEmbedder(t *testing.T, fake *fakeGemini, batch int) *Embedder {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	e, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL, BatchSize: batch})
	require.NoError(t, err)
	return e
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestEmbed_BatchesAndNormalizes(t *testing.T) {
	fake := &fakeGemini{}
	e := newTestEmbedder(t, fake, 2)
	assert.Equal(t, "gemini:"+DefaultModel, e.Name())
	assert.Zero(t, e.Dimension())

	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	for _, v := range vecs {
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	}
	assert.Equal(t, []int{2, 2, 1}, fake.batches)
	assert.True(t, strings.HasSuffix(fake.paths[0], DefaultModel+":batchEmbedContents"), fake.paths[0])
	assert.Equal(t, 2, e.Dimension())
}

func TestEmbed_CountMismatch(t *testing.T) {
	e := newTestEmbedder(t, &fakeGemini{short: true}, 10)
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingMismatch)
}
