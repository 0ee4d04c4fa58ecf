package embedding

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"pdfrag/internal/domain"
)

// WithCache wraps p with an expiring per-text LRU cache. A non-positive size
// or ttl returns p unchanged.
func WithCache(p domain.EmbeddingProvider, size int, ttl time.Duration) domain.EmbeddingProvider {
	if p == nil || size <= 0 || ttl <= 0 {
		return p
	}
	return &cachedProvider{
		next:  p,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type cachedProvider struct {
	next  domain.EmbeddingProvider
	cache *expirable.LRU[string, []float32]
}

func (c *cachedProvider) Name() string   { return c.next.Name() }
func (c *cachedProvider) Dimension() int { return c.next.Dimension() }

// Embed serves cached vectors and forwards only the misses, in one call.
func (c *cachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := c.cache.Get(c.key(t)); ok {
			out[i] = clone(v)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	vecs, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, domain.ErrEmbeddingMismatch
	}
	for j, i := range missIdx {
		c.cache.Add(c.key(missTexts[j]), clone(vecs[j]))
		out[i] = vecs[j]
	}
	return out, nil
}

func (c *cachedProvider) key(text string) string {
	sum := md5.Sum([]byte(text))
	return c.next.Name() + ":" + hex.EncodeToString(sum[:])
}

func clone(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
