package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/llm"
)

const systemPrompt = "You are a helpful assistant answering questions based only on the provided context.\n" +
	"Use citations [1], [2], etc., to reference the relevant parts."

// Generative asks a language model for a grounded answer.
type Generative struct {
	Provider      string // display name, e.g. "OpenAI"
	CredentialEnv string
	HasCredential bool
	Generator     llm.Generator
	Model         string
	Temperature   float32
	MaxTokens     int
	Timeout       time.Duration
	Logger        *zap.Logger
}

var _ Formatter = (*Generative)(nil)

func (g *Generative) Format(ctx context.Context, query string, hits []domain.Hit) (out string) {
	if !g.HasCredential || g.Generator == nil {
		return fmt.Sprintf("⚠️ %s not set. Falling back to template answer.", g.CredentialEnv)
	}
	logger := g.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("generation panicked", zap.Any("panic", r))
			out = fmt.Sprintf("⚠️ %s generation failed: %v", g.Provider, r)
		}
	}()

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	text, err := g.Generator.Generate(ctx, llm.Request{
		Model:       g.Model,
		System:      systemPrompt,
		Prompt:      BuildPrompt(query, hits),
		Temperature: g.Temperature,
		MaxTokens:   g.MaxTokens,
	})
	if err != nil {
		logger.Warn("generation failed", zap.String("provider", g.Provider), zap.Error(err))
		if llm.IsConnection(err) {
			return fmt.Sprintf("⚠️ %s API connection failed: %v", g.Provider, err)
		}
		return fmt.Sprintf("⚠️ %s generation failed: %v", g.Provider, err)
	}
	return strings.TrimSpace(text)
}

// BuildPrompt lays out numbered context passages followed by the question.
func BuildPrompt(query string, hits []domain.Hit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[%d] (%s#%d) %s", i+1, h.Source, h.Ordinal, h.Text)
	}
	return "Context:\n\n" + strings.Join(parts, "\n\n") + "\n\nQuestion: " + query
}
