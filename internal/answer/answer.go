package answer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pdfrag/internal/config"
	"pdfrag/internal/llm"
	"pdfrag/internal/llm/gemini"
	"pdfrag/internal/llm/openai"
)

const (
	temperature = 0.2
	maxTokens   = 500
)

// New selects the formatter for cfg.Mode. A missing credential still yields a
// Generative formatter so the user sees which variable to set.
func New(ctx context.Context, cfg config.AnswerConfig, logger *zap.Logger) (Formatter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generative{
		CredentialEnv: config.CredentialEnv(cfg.Mode),
		HasCredential: cfg.APIKey != "",
		Model:         cfg.Model,
		Temperature:   temperature,
		MaxTokens:     maxTokens,
		Timeout:       cfg.Timeout,
		Logger:        logger,
	}
	var gen llm.Generator
	switch cfg.Mode {
	case config.ProviderOpenAI:
		g.Provider = "OpenAI"
		if g.HasCredential {
			gen = openai.New(cfg.BaseURL, cfg.APIKey, cfg.Timeout+5*time.Second)
		}
	case config.ProviderGemini:
		g.Provider = "Gemini"
		if g.HasCredential {
			c, err := gemini.New(ctx, cfg.APIKey)
			if err != nil {
				return nil, err
			}
			gen = c
		}
	default:
		return Template{}, nil
	}
	g.Generator = gen
	return g, nil
}
