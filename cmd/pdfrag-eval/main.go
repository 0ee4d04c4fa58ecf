// Command pdfrag-eval prints the passages retrieved for a few canned questions
// as a quick sanity check of an ingested collection.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pdfrag/internal/answer"
	"pdfrag/internal/app"
	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/logger"
)

var questions = []string{
	"What is the main contribution?",
	"Summarize the experimental setup.",
	"List the key results.",
}

type retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.Hit, error)
}

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file (optional)")
	k := flag.Int("k", 4, "passages per question")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Level, *verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("build failed", zap.Error(err))
	}
	defer a.Close()

	if err := run(ctx, os.Stdout, a.Retriever, *k); err != nil {
		log.Fatal("eval failed", zap.Error(err))
	}
}

func run(ctx context.Context, w io.Writer, r retriever, k int) error {
	for _, q := range questions {
		hits, err := r.Retrieve(ctx, q, k)
		if err != nil {
			return fmt.Errorf("%q: %w", q, err)
		}
		fmt.Fprintf(w, "\nQ: %s\n", q)
		for i, h := range hits {
			fmt.Fprintf(w, "[%d] %s#%d score=%.3f\n", i+1, h.Source, h.Ordinal, h.Distance)
			fmt.Fprintln(w, strings.ReplaceAll(answer.Truncate(h.Text, answer.ExcerptRunes), "\n", " ")+" ...")
		}
	}
	return nil
}
