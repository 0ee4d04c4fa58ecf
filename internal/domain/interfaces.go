package domain

import "context"

// Document is a PDF loaded from the ingest folder. Text holds the extracted
// text or the read-error placeholder.
type Document struct {
	Source string
	Path   string
	Text   string
}

// Chunk is a window of a document's normalised text.
type Chunk struct {
	Source  string
	Ordinal int
	Text    string
}

// ChunkRecord is the persisted unit: a chunk, its embedding and a stable ID.
type ChunkRecord struct {
	ID        string
	Chunk     Chunk
	Embedding []float32
}

// Hit is a single retrieval result. Distance is a cosine distance, so smaller
// values mean closer matches.
type Hit struct {
	ID       string
	Text     string
	Source   string
	Ordinal  int
	Distance float64
}

// EmbeddingProvider maps texts to unit-normalised vectors of a fixed dimension.
// The returned slice has the same length and order as texts.
type EmbeddingProvider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is a storage backend bound to one storage location.
type VectorIndex interface {
	GetOrCreateCollection(ctx context.Context, name string) (Collection, error)
	Close() error
}

// Collection is a named set of chunk records.
type Collection interface {
	Name() string
	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, records []ChunkRecord) error
	// Query returns at most k hits ordered by ascending distance.
	Query(ctx context.Context, embedding []float32, k int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	// PruneSource deletes records of source whose IDs are not in keep and
	// reports how many were removed.
	PruneSource(ctx context.Context, source string, keep []string) (int, error)
}

// DocumentLoader returns the documents of a folder in a deterministic order.
type DocumentLoader interface {
	LoadFolder(folder string) ([]Document, error)
}
