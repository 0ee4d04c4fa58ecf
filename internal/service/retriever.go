package service

import (
	"context"
	"fmt"

	"pdfrag/internal/domain"
)

// Retriever embeds a question and looks up the nearest chunks.
type Retriever struct {
	embedder   domain.EmbeddingProvider
	collection domain.Collection
}

func NewRetriever(embedder domain.EmbeddingProvider, collection domain.Collection) *Retriever {
	return &Retriever{embedder: embedder, collection: collection}
}

// Retrieve returns at most k hits by ascending distance. k <= 0 yields no hits
// and no embedding call.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	if k <= 0 {
		return []domain.Hit{}, nil
	}
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: 1 query, %d vectors", domain.ErrEmbeddingMismatch, len(vecs))
	}
	hits, err := r.collection.Query(ctx, vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.collection.Name(), err)
	}
	if hits == nil {
		hits = []domain.Hit{}
	}
	return hits, nil
}
