// Package distance ranks chunk records by cosine distance for the
// brute-force backends.
package distance

import (
	"math"
	"sort"

	"pdfrag/internal/domain"
)

// Cosine returns 1 - cos(a, b). Mismatched lengths or a zero vector give 1.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	// Rounding can push identical vectors slightly past 1.
	return math.Max(0, 1-dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

// TopK scores records against query and returns the k nearest, ties broken by ID.
func TopK(records []domain.ChunkRecord, query []float32, k int) []domain.Hit {
	if k <= 0 || len(records) == 0 {
		return []domain.Hit{}
	}
	hits := make([]domain.Hit, len(records))
	for i, r := range records {
		hits[i] = domain.Hit{
			ID:       r.ID,
			Text:     r.Chunk.Text,
			Source:   r.Chunk.Source,
			Ordinal:  r.Chunk.Ordinal,
			Distance: Cosine(r.Embedding, query),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}
