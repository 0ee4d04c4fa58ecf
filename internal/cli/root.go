// Package cli implements the pdfrag command line.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pdfrag/internal/app"
	"pdfrag/internal/config"
	"pdfrag/internal/logger"
)

// Builder assembles the application for a command run.
type Builder func(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*app.App, error)

// Options customises NewRootCommand. Zero values select the production wiring.
type Options struct {
	Build      Builder
	LoadConfig func(path string) (*config.AppConfig, error)
}

type runtime struct {
	opts       Options
	configPath string
	verbose    bool

	cfg    *config.AppConfig
	logger *zap.Logger
}

// NewRootCommand returns the pdfrag command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Build == nil {
		opts.Build = app.Build
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	rt := &runtime{opts: opts}

	root := &cobra.Command{
		Use:   "pdfrag",
		Short: "Ask questions about a folder of PDFs",
		Long: `pdfrag indexes the PDFs of a folder into a vector store and answers
questions with the passages closest to them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}
	root.SetOut(os.Stdout)
	root.PersistentFlags().StringVar(&rt.configPath, "config", "config.yaml", "path to YAML config file (optional)")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newIngestCommand(rt), newQueryCommand(rt), newTUICommand(rt))
	return root
}

func (rt *runtime) setup() error {
	cfg, err := rt.opts.LoadConfig(rt.configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, rt.verbose)
	if err != nil {
		return err
	}
	rt.cfg = cfg
	rt.logger = log
	log.Debug("config loaded", zap.String("config", rt.configPath))
	return nil
}

func (rt *runtime) build(ctx context.Context) (*app.App, error) {
	return rt.opts.Build(ctx, rt.cfg, rt.logger)
}
