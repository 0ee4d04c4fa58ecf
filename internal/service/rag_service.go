package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"pdfrag/internal/answer"
	"pdfrag/internal/domain"
)

// Summarizer condenses text into at most maxSentences sentences.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Answer is the result of one question.
type Answer struct {
	Hits []domain.Hit
	Text string
	// Gist is an extractive summary of the hits; empty without a summarizer.
	Gist string
}

type RAGService struct {
	indexer    *Indexer
	retriever  *Retriever
	formatter  answer.Formatter
	summarizer Summarizer
	gistSize   int
	logger     *zap.Logger
}

func NewRAGService(indexer *Indexer, retriever *Retriever, formatter answer.Formatter, logger *zap.Logger) *RAGService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAGService{indexer: indexer, retriever: retriever, formatter: formatter, logger: logger}
}

// WithSummarizer enables gists of at most maxSentences sentences.
func (s *RAGService) WithSummarizer(sum Summarizer, maxSentences int) *RAGService {
	s.summarizer = sum
	s.gistSize = maxSentences
	return s
}

func (s *RAGService) Ingest(ctx context.Context, folder string) (int, error) {
	return s.indexer.Index(ctx, folder)
}

// Ask retrieves k passages and formats an answer. Formatting never fails.
func (s *RAGService) Ask(ctx context.Context, query string, k int) (*Answer, error) {
	hits, err := s.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("retrieved", zap.String("query", query), zap.Int("hits", len(hits)))
	out := &Answer{Hits: hits, Text: s.formatter.Format(ctx, query, hits)}
	if s.summarizer != nil && len(hits) > 0 {
		texts := make([]string, len(hits))
		for i, h := range hits {
			texts[i] = h.Text
		}
		gist, err := s.summarizer.Summarize(strings.Join(texts, "\n"), s.gistSize)
		if err != nil {
			s.logger.Warn("gist failed", zap.Error(err))
		} else {
			out.Gist = gist
		}
	}
	return out, nil
}
