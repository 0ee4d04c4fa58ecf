// Package vectorstore opens the configured vector index backend.
package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/vectorstore/memory"
	"pdfrag/internal/vectorstore/pgvector"
	"pdfrag/internal/vectorstore/qdrant"
	"pdfrag/internal/vectorstore/sqlite"
)

// Open binds the storage location and returns the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (domain.VectorIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("backend", cfg.Backend))
	switch cfg.Backend {
	case config.BackendSQLite, "":
		return sqlite.Open(cfg.Dir, logger)
	case config.BackendMemory:
		return memory.NewStorage(), nil
	case config.BackendQdrant:
		return qdrant.NewStorage(qdrant.Config{URL: cfg.Qdrant.URL, APIKey: cfg.Qdrant.APIKey, Logger: logger}), nil
	case config.BackendPGVector:
		return pgvector.Open(ctx, cfg.PGVector.DSN, logger)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, cfg.Backend)
	}
}
