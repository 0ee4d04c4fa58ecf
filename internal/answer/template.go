// Package answer turns retrieved passages into the text shown to the user.
package answer

import (
	"context"
	"fmt"
	"strings"

	"pdfrag/internal/domain"
)

// ExcerptRunes is the length of each reference excerpt in a template answer.
const ExcerptRunes = 160

// Formatter renders an answer for query from hits. It never fails.
type Formatter interface {
	Format(ctx context.Context, query string, hits []domain.Hit) string
}

// Template is the deterministic offline formatter.
type Template struct{}

var _ Formatter = Template{}

func (Template) Format(_ context.Context, query string, hits []domain.Hit) string {
	var b strings.Builder
	b.WriteString("Answer grounded in retrieved context (no LLM mode).\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", query)
	b.WriteString("Top references:\n")
	if len(hits) == 0 {
		b.WriteString("- (no passages retrieved)\n")
	}
	for i, h := range hits {
		fmt.Fprintf(&b, "- [%d] (%s#%d) %s...\n", i+1, h.Source, h.Ordinal, Truncate(h.Text, ExcerptRunes))
	}
	b.WriteString("\n(Enable OpenAI in .env for model-generated answers.)")
	return b.String()
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
