package memory

import (
	"context"
	"fmt"
	"sync"

	"pdfrag/internal/domain"
	"pdfrag/internal/vectorstore/distance"
)

// Storage is a simple in-memory vector index using brute-force cosine distance.
// Collections live as long as the Storage value.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*Collection
}

var _ domain.VectorIndex = (*Storage)(nil)

func NewStorage() *Storage { return &Storage{collections: make(map[string]*Collection)} }

func (s *Storage) GetOrCreateCollection(_ context.Context, name string) (domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c := &Collection{name: name, byID: make(map[string]int)}
	s.collections[name] = c
	return c, nil
}

func (s *Storage) Close() error { return nil }

// Collection keeps records in insertion order with an ID index for upserts.
type Collection struct {
	mu        sync.RWMutex
	name      string
	dimension int
	records   []domain.ChunkRecord
	byID      map[string]int
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) Upsert(_ context.Context, records []domain.ChunkRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range records {
		if c.dimension == 0 {
			c.dimension = len(r.Embedding)
		}
		if len(r.Embedding) != c.dimension {
			return fmt.Errorf("%w: record %s has %d, collection has %d", domain.ErrDimensionMismatch, r.ID, len(r.Embedding), c.dimension)
		}
	}
	for _, r := range records {
		r.Embedding = append([]float32(nil), r.Embedding...)
		if i, ok := c.byID[r.ID]; ok {
			c.records[i] = r
			continue
		}
		c.byID[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
	return nil
}

func (c *Collection) Query(_ context.Context, embedding []float32, k int) ([]domain.Hit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if k > 0 && len(c.records) > 0 && len(embedding) != c.dimension {
		return nil, fmt.Errorf("%w: query has %d, collection has %d", domain.ErrDimensionMismatch, len(embedding), c.dimension)
	}
	return distance.TopK(c.records, embedding, k), nil
}

func (c *Collection) Count(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), nil
}

func (c *Collection) PruneSource(_ context.Context, source string, keep []string) (int, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.records[:0]
	removed := 0
	for _, r := range c.records {
		if _, ok := keepSet[r.ID]; r.Chunk.Source == source && !ok {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	c.records = kept
	if len(kept) == 0 {
		c.dimension = 0
	}
	c.byID = make(map[string]int, len(kept))
	for i, r := range kept {
		c.byID[r.ID] = i
	}
	return removed, nil
}
