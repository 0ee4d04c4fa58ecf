package domain

import "errors"

var (
	// ErrInvalidChunkConfig indicates a chunk size/overlap pair that cannot make progress.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingMismatch indicates a provider returned a different number of vectors than inputs.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrDimensionMismatch indicates a vector does not match the collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrUnknownBackend indicates an unsupported provider or store type.
	ErrUnknownBackend = errors.New("unknown backend")
)
