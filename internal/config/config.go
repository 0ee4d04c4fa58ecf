package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pdfrag/internal/domain"
)

// Backend names accepted by store.backend.
const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendQdrant   = "qdrant"
	BackendPGVector = "pgvector"
)

// Embedding providers and answer modes.
const (
	ProviderHashing = "hashing"
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"

	ModeNone = "none"
)

// Credential environment variables. They are never read from YAML.
const (
	OpenAIKeyEnv = "OPENAI_API_KEY"
	GeminiKeyEnv = "GEMINI_API_KEY"
)

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// PGVectorConfig contains connection details for PostgreSQL with pgvector.
type PGVectorConfig struct {
	DSN string `yaml:"dsn"`
}

// StoreConfig selects and configures the vector index backend.
type StoreConfig struct {
	Backend    string         `yaml:"backend"`
	Dir        string         `yaml:"dir"`
	Collection string         `yaml:"collection"`
	Qdrant     QdrantConfig   `yaml:"qdrant"`
	PGVector   PGVectorConfig `yaml:"pgvector"`
}

// EmbeddingConfig selects and configures the text embedder implementation.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// Dimension of zero lets the provider pick its native size.
	Dimension         int           `yaml:"dimension"`
	BaseURL           string        `yaml:"base_url"`
	BatchSize         int           `yaml:"batch_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CacheSize         int           `yaml:"cache_size"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	APIKey            string        `yaml:"-"`
}

// ChunkingConfig configures how documents are split into chunks.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

type IndexingConfig struct {
	PruneStale bool `yaml:"prune_stale"`
}

// AnswerConfig selects the answer formatter variant.
type AnswerConfig struct {
	Mode    string        `yaml:"mode"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"-"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Indexing  IndexingConfig  `yaml:"indexing"`
	Answer    AnswerConfig    `yaml:"answer"`
	Log       LogConfig       `yaml:"log"`
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, then validates it. A missing file is not an error.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, path, err)
			}
		}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Store: StoreConfig{
			Backend:    BackendSQLite,
			Dir:        "./vector_store",
			Collection: "pdfs",
			Qdrant:     QdrantConfig{URL: "http://localhost:6333"},
		},
		Embedding: EmbeddingConfig{
			Provider:  ProviderHashing,
			BaseURL:   "https://api.openai.com/v1",
			BatchSize: 64,
			CacheSize: 256,
			CacheTTL:  10 * time.Minute,
		},
		Chunking:  ChunkingConfig{Size: 900, Overlap: 120},
		Retrieval: RetrievalConfig{TopK: 4},
		Answer: AnswerConfig{
			Mode:    ModeNone,
			Timeout: 60 * time.Second,
			BaseURL: "https://api.openai.com/v1",
		},
		Log: LogConfig{Level: "info"},
	}
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *AppConfig, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidConfig, key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q is not a number", domain.ErrInvalidConfig, key, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q is not a boolean", domain.ErrInvalidConfig, key, v))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q is not a duration", domain.ErrInvalidConfig, key, v))
				return
			}
			*dst = d
		}
	}

	str("VECTOR_STORE", &cfg.Store.Backend)
	str("VECTOR_STORE_DIR", &cfg.Store.Dir)
	str("COLLECTION_NAME", &cfg.Store.Collection)
	str("QDRANT_URL", &cfg.Store.Qdrant.URL)
	str("QDRANT_API_KEY", &cfg.Store.Qdrant.APIKey)
	str("PGVECTOR_DSN", &cfg.Store.PGVector.DSN)

	str("EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	str("EMBEDDING_MODEL", &cfg.Embedding.Model)
	num("EMBEDDING_DIMENSION", &cfg.Embedding.Dimension)
	str("EMBEDDING_BASE_URL", &cfg.Embedding.BaseURL)
	num("EMBEDDING_BATCH_SIZE", &cfg.Embedding.BatchSize)
	float("EMBEDDING_RPS", &cfg.Embedding.RequestsPerSecond)
	num("EMBED_CACHE_SIZE", &cfg.Embedding.CacheSize)
	duration("EMBED_CACHE_TTL", &cfg.Embedding.CacheTTL)

	num("CHUNK_SIZE", &cfg.Chunking.Size)
	num("CHUNK_OVERLAP", &cfg.Chunking.Overlap)
	num("TOP_K", &cfg.Retrieval.TopK)
	boolean("PRUNE_STALE", &cfg.Indexing.PruneStale)

	str("GENERATOR", &cfg.Answer.Mode)
	str("GENERATOR_MODEL", &cfg.Answer.Model)
	duration("GENERATION_TIMEOUT", &cfg.Answer.Timeout)
	str("OPENAI_BASE_URL", &cfg.Answer.BaseURL)

	str("LOG_LEVEL", &cfg.Log.Level)

	var openaiKey, geminiKey string
	str(OpenAIKeyEnv, &openaiKey)
	str(GeminiKeyEnv, &geminiKey)
	cfg.Embedding.APIKey = credentialFor(cfg.Embedding.Provider, openaiKey, geminiKey)
	cfg.Answer.APIKey = credentialFor(cfg.Answer.Mode, openaiKey, geminiKey)

	return errors.Join(errs...)
}

func credentialFor(provider, openaiKey, geminiKey string) string {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return openaiKey
	case ProviderGemini:
		return geminiKey
	}
	return ""
}

// CredentialEnv names the environment variable holding the key for provider.
func CredentialEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return OpenAIKeyEnv
	case ProviderGemini:
		return GeminiKeyEnv
	}
	return ""
}

func applyConfigDefaults(cfg *AppConfig) {
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	cfg.Embedding.Provider = strings.ToLower(cfg.Embedding.Provider)
	cfg.Answer.Mode = strings.ToLower(cfg.Answer.Mode)
	if cfg.Answer.Mode == "" {
		cfg.Answer.Mode = ModeNone
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case ProviderOpenAI:
			cfg.Embedding.Model = "text-embedding-3-small"
		case ProviderGemini:
			cfg.Embedding.Model = "text-embedding-004"
		}
	}
	if cfg.Answer.Model == "" {
		switch cfg.Answer.Mode {
		case ProviderOpenAI:
			cfg.Answer.Model = "gpt-4o-mini"
		case ProviderGemini:
			cfg.Answer.Model = "gemini-2.0-flash"
		}
	}
}

// Validate reports every invalid setting at once.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Chunking.Size <= 0 || c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		errs = append(errs, fmt.Errorf("%w: size=%d overlap=%d", domain.ErrInvalidChunkConfig, c.Chunking.Size, c.Chunking.Overlap))
	}
	switch c.Store.Backend {
	case BackendSQLite, BackendMemory, BackendQdrant:
	case BackendPGVector:
		if c.Store.PGVector.DSN == "" {
			errs = append(errs, fmt.Errorf("%w: pgvector backend requires PGVECTOR_DSN", domain.ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: store backend %q", domain.ErrUnknownBackend, c.Store.Backend))
	}
	if strings.TrimSpace(c.Store.Collection) == "" {
		errs = append(errs, fmt.Errorf("%w: empty collection name", domain.ErrInvalidConfig))
	}
	switch c.Embedding.Provider {
	case ProviderHashing, ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("%w: embedding provider %q", domain.ErrUnknownBackend, c.Embedding.Provider))
	}
	if c.Embedding.Dimension < 0 {
		errs = append(errs, fmt.Errorf("%w: embedding dimension %d", domain.ErrInvalidConfig, c.Embedding.Dimension))
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: embedding batch size %d", domain.ErrInvalidConfig, c.Embedding.BatchSize))
	}
	if c.Embedding.RequestsPerSecond < 0 || c.Embedding.CacheSize < 0 || c.Embedding.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("%w: negative embedding rate or cache setting", domain.ErrInvalidConfig))
	}
	if c.Retrieval.TopK < 0 {
		errs = append(errs, fmt.Errorf("%w: top_k %d", domain.ErrInvalidConfig, c.Retrieval.TopK))
	}
	switch c.Answer.Mode {
	case ModeNone, ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("%w: answer mode %q", domain.ErrUnknownBackend, c.Answer.Mode))
	}
	if c.Answer.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: generation timeout %s", domain.ErrInvalidConfig, c.Answer.Timeout))
	}
	return errors.Join(errs...)
}
