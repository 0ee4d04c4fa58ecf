// Package gemini embeds texts with the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"pdfrag/internal/domain"
	"pdfrag/internal/embedding"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "text-embedding-004"

// Embedder implements domain.EmbeddingProvider on top of genai.Models.EmbedContent.
type Embedder struct {
	client    *genai.Client
	model     string
	dimension int
	batchSize int
}

var _ domain.EmbeddingProvider = (*Embedder)(nil)

// Config configures the Gemini embedder.
type Config struct {
	APIKey    string
	Model     string
	Dimension int
	BatchSize int
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string
}

// New creates the underlying genai client once.
func New(ctx context.Context, cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini embeddings require an API key", domain.ErrInvalidConfig)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	batch := cfg.BatchSize
	if batch <= 0 || batch > 100 {
		batch = 100
	}
	return &Embedder{client: client, model: model, dimension: cfg.Dimension, batchSize: batch}, nil
}

func (e *Embedder) Name() string { return "gemini:" + e.model }

func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	var cfg *genai.EmbedContentConfig
	if e.dimension > 0 {
		dim := int32(e.dimension)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", domain.ErrEmbeddingMismatch, len(texts), len(resp.Embeddings))
	}
	vecs := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at %d", i)
		}
		if e.dimension == 0 {
			e.dimension = len(emb.Values)
		}
		vecs[i] = embedding.Normalize(emb.Values)
	}
	return vecs, nil
}
