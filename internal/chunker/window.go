package chunker

import (
	"fmt"

	"pdfrag/internal/domain"
)

// Window splits normalised text into fixed-size overlapping windows measured
// in runes.
type Window struct {
	size    int
	overlap int
}

// New validates size and overlap once so Split cannot stall.
func New(size, overlap int) (*Window, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Window{size: size, overlap: overlap}, nil
}

// Size returns the window length in runes.
func (w *Window) Size() int { return w.size }

// Overlap returns the number of runes shared by consecutive windows.
func (w *Window) Overlap() int { return w.overlap }

// Split normalises text and returns its windows in order.
func (w *Window) Split(text string) []string {
	runes := []rune(Normalize(text))
	n := len(runes)
	if n == 0 {
		return nil
	}
	chunks := make([]string, 0, n/(w.size-w.overlap)+1)
	start := 0
	for start < n {
		end := start + w.size
		if end > n {
			end = n
		}
		chunks = append(chunks, string(runes[start:end]))
		if end >= n {
			break
		}
		start = end - w.overlap
	}
	return chunks
}

// Chunks splits a document and assigns contiguous ordinals from zero.
func (w *Window) Chunks(doc domain.Document) []domain.Chunk {
	texts := w.Split(doc.Text)
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{Source: doc.Source, Ordinal: i, Text: t}
	}
	return out
}

// Chunk is the one-shot form of New(size, overlap).Split(text).
func Chunk(text string, size, overlap int) ([]string, error) {
	w, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return w.Split(text), nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidChunkConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidChunkConfig, size, overlap)
	}
	return nil
}
