package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pdfrag/internal/chunker"
	"pdfrag/internal/domain"
)

// Indexer loads every PDF of a folder, chunks, embeds and upserts it.
type Indexer struct {
	loader     domain.DocumentLoader
	window     *chunker.Window
	embedder   domain.EmbeddingProvider
	collection domain.Collection
	logger     *zap.Logger

	// Prune removes records of a re-indexed source that this run did not produce.
	Prune bool
	// OnDocument is called once per document with its chunk count.
	OnDocument func(source string, chunks int)
}

func NewIndexer(loader domain.DocumentLoader, window *chunker.Window, embedder domain.EmbeddingProvider, collection domain.Collection, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{loader: loader, window: window, embedder: embedder, collection: collection, logger: logger}
}

// Index returns the number of chunks written. Zero means nothing was indexed.
func (ix *Indexer) Index(ctx context.Context, folder string) (int, error) {
	docs, err := ix.loader.LoadFolder(folder)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		ix.logger.Info("no pdfs found", zap.String("folder", folder))
		return 0, nil
	}
	total := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := ix.indexDocument(ctx, doc)
		if err != nil {
			return total, fmt.Errorf("index %s: %w", doc.Source, err)
		}
		total += n
		if ix.OnDocument != nil {
			ix.OnDocument(doc.Source, n)
		}
	}
	ix.logger.Info("indexing complete", zap.Int("documents", len(docs)), zap.Int("chunks", total))
	return total, nil
}

func (ix *Indexer) indexDocument(ctx context.Context, doc domain.Document) (int, error) {
	chunks := ix.window.Chunks(doc)
	if len(chunks) == 0 {
		ix.logger.Debug("document produced no chunks", zap.String("source", doc.Source))
		return 0, ix.prune(ctx, doc.Source, nil)
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(chunks) {
		return 0, fmt.Errorf("%w: %d chunks, %d vectors", domain.ErrEmbeddingMismatch, len(chunks), len(vecs))
	}
	records := make([]domain.ChunkRecord, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		records[i] = domain.NewChunkRecord(c, vecs[i])
		ids[i] = records[i].ID
	}
	if err := ix.collection.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	if err := ix.prune(ctx, doc.Source, ids); err != nil {
		return 0, err
	}
	ix.logger.Info("ingested document", zap.String("source", doc.Source), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// prune drops records of source not listed in keep. A nil keep empties the source.
func (ix *Indexer) prune(ctx context.Context, source string, keep []string) error {
	if !ix.Prune {
		return nil
	}
	removed, err := ix.collection.PruneSource(ctx, source, keep)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	if removed > 0 {
		ix.logger.Info("pruned stale chunks", zap.String("source", source), zap.Int("removed", removed))
	}
	return nil
}
