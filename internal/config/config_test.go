package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

func mapLookup(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "./vector_store", cfg.Store.Dir)
	assert.Equal(t, "pdfs", cfg.Store.Collection)
	assert.Equal(t, ProviderHashing, cfg.Embedding.Provider)
	assert.Equal(t, 900, cfg.Chunking.Size)
	assert.Equal(t, 120, cfg.Chunking.Overlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, ModeNone, cfg.Answer.Mode)
	assert.Equal(t, 60*time.Second, cfg.Answer.Timeout)
	assert.False(t, cfg.Indexing.PruneStale)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 900, cfg.Chunking.Size)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: memory
  collection: papers
chunking:
  size: 500
  overlap: 50
answer:
  mode: openai
  timeout: 5s
`), 0o644))
	t.Setenv("CHUNK_OVERLAP", "25")
	t.Setenv(OpenAIKeyEnv, "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "papers", cfg.Store.Collection)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 25, cfg.Chunking.Overlap)
	assert.Equal(t, ProviderOpenAI, cfg.Answer.Mode)
	assert.Equal(t, "gpt-4o-mini", cfg.Answer.Model)
	assert.Equal(t, 5*time.Second, cfg.Answer.Timeout)
	assert.Equal(t, "sk-test", cfg.Answer.APIKey)
	assert.Empty(t, cfg.Embedding.APIKey)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unterminated"), 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestApplyEnv_Overrides(t *testing.T) {
	cfg := Default()
	err := applyEnv(cfg, mapLookup(map[string]string{
		"VECTOR_STORE":       "qdrant",
		"QDRANT_URL":         "http://qdrant:6333",
		"EMBEDDING_PROVIDER": "gemini",
		"EMBED_CACHE_TTL":    "1m",
		"EMBEDDING_RPS":      "2.5",
		"PRUNE_STALE":        "true",
		"TOP_K":              "7",
		GeminiKeyEnv:         "g-key",
	}))
	require.NoError(t, err)
	applyConfigDefaults(cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BackendQdrant, cfg.Store.Backend)
	assert.Equal(t, "http://qdrant:6333", cfg.Store.Qdrant.URL)
	assert.Equal(t, ProviderGemini, cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-004", cfg.Embedding.Model)
	assert.Equal(t, "g-key", cfg.Embedding.APIKey)
	assert.Equal(t, time.Minute, cfg.Embedding.CacheTTL)
	assert.InDelta(t, 2.5, cfg.Embedding.RequestsPerSecond, 1e-9)
	assert.True(t, cfg.Indexing.PruneStale)
	assert.Equal(t, 7, cfg.Retrieval.TopK)
}

func TestApplyEnv_MalformedValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CHUNK_SIZE", "big"},
		{"EMBEDDING_RPS", "fast"},
		{"PRUNE_STALE", "maybe"},
		{"GENERATION_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := applyEnv(Default(), mapLookup(map[string]string{tt.key: tt.value}))
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   error
	}{
		{"overlap equals size", func(c *AppConfig) { c.Chunking.Overlap = c.Chunking.Size }, domain.ErrInvalidChunkConfig},
		{"zero size", func(c *AppConfig) { c.Chunking.Size = 0 }, domain.ErrInvalidChunkConfig},
		{"negative overlap", func(c *AppConfig) { c.Chunking.Overlap = -1 }, domain.ErrInvalidChunkConfig},
		{"unknown backend", func(c *AppConfig) { c.Store.Backend = "chroma" }, domain.ErrUnknownBackend},
		{"pgvector without dsn", func(c *AppConfig) { c.Store.Backend = BackendPGVector }, domain.ErrInvalidConfig},
		{"unknown provider", func(c *AppConfig) { c.Embedding.Provider = "word2vec" }, domain.ErrUnknownBackend},
		{"unknown mode", func(c *AppConfig) { c.Answer.Mode = "claude" }, domain.ErrUnknownBackend},
		{"zero batch", func(c *AppConfig) { c.Embedding.BatchSize = 0 }, domain.ErrInvalidConfig},
		{"negative top k", func(c *AppConfig) { c.Retrieval.TopK = -1 }, domain.ErrInvalidConfig},
		{"empty collection", func(c *AppConfig) { c.Store.Collection = " " }, domain.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestCredentialEnv(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", CredentialEnv(ProviderOpenAI))
	assert.Equal(t, "GEMINI_API_KEY", CredentialEnv(ProviderGemini))
	assert.Empty(t, CredentialEnv(ModeNone))
}
