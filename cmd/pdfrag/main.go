package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pdfrag/internal/cli"
	"pdfrag/internal/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cli.Options{}).ExecuteContext(ctx); err != nil {
		log, lerr := logger.New(os.Getenv("LOG_LEVEL"), false)
		if lerr != nil {
			log = zap.NewExample()
		}
		log.Error("command failed", zap.Error(err))
		_ = log.Sync()
		stop()
		os.Exit(1)
	}
}
