// Package app wires configured components into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pdfrag/internal/answer"
	"pdfrag/internal/chunker"
	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/embedding"
	"pdfrag/internal/embedding/gemini"
	"pdfrag/internal/embedding/hashing"
	"pdfrag/internal/embedding/openai"
	"pdfrag/internal/pdfloader"
	"pdfrag/internal/service"
	"pdfrag/internal/summarizer"
	"pdfrag/internal/vectorstore"
)

// GistSentences bounds the extractive gist shown next to answers.
const GistSentences = 3

// App holds the assembled services for one process.
type App struct {
	Config      *config.AppConfig
	Collection  domain.Collection
	Indexer     *service.Indexer
	Retriever   *service.Retriever
	RAG         *service.RAGService
	Highlighter *summarizer.FrequencySummarizer

	index domain.VectorIndex
}

// Build opens the vector index and assembles every component from cfg.
func Build(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	window, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	emb, err := NewEmbedder(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}
	formatter, err := answer.New(ctx, cfg.Answer, logger.Named("answer"))
	if err != nil {
		return nil, fmt.Errorf("answer formatter: %w", err)
	}
	index, err := vectorstore.Open(ctx, cfg.Store, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	coll, err := index.GetOrCreateCollection(ctx, cfg.Store.Collection)
	if err != nil {
		return nil, errors.Join(err, index.Close())
	}
	logger.Debug("application assembled",
		zap.String("store", cfg.Store.Backend),
		zap.String("collection", coll.Name()),
		zap.String("embedder", emb.Name()),
		zap.String("answer_mode", cfg.Answer.Mode),
	)
	return New(cfg, index, coll, window, emb, formatter, logger), nil
}

// New assembles an App from already constructed parts.
func New(cfg *config.AppConfig, index domain.VectorIndex, coll domain.Collection, window *chunker.Window, emb domain.EmbeddingProvider, formatter answer.Formatter, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	sum := summarizer.NewFrequencySummarizer()
	ix := service.NewIndexer(pdfloader.New(logger.Named("pdf")), window, emb, coll, logger.Named("indexer"))
	ix.Prune = cfg.Indexing.PruneStale
	r := service.NewRetriever(emb, coll)
	return &App{
		Config:      cfg,
		Collection:  coll,
		Indexer:     ix,
		Retriever:   r,
		RAG:         service.NewRAGService(ix, r, formatter, logger).WithSummarizer(sum, GistSentences),
		Highlighter: sum,
		index:       index,
	}
}

// NewEmbedder returns the configured provider, wrapped in a cache when enabled.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (domain.EmbeddingProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var p domain.EmbeddingProvider
	switch cfg.Provider {
	case config.ProviderHashing, "":
		p = hashing.NewEmbedder(cfg.Dimension)
	case config.ProviderOpenAI:
		c, err := openai.NewClient(openai.Config{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			Dimension:         cfg.Dimension,
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Logger:            logger.Named("openai"),
		})
		if err != nil {
			return nil, err
		}
		p = c
	case config.ProviderGemini:
		e, err := gemini.New(ctx, gemini.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		p = e
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnknownBackend, cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		p = embedding.WithCache(p, cfg.CacheSize, cfg.CacheTTL)
	}
	return p, nil
}

// Close releases the vector index.
func (a *App) Close() error {
	if a.index == nil {
		return nil
	}
	return a.index.Close()
}
