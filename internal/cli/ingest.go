package cli

import (
	"github.com/spf13/cobra"
)

func newIngestCommand(rt *runtime) *cobra.Command {
	var (
		path  string
		prune bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index every PDF in a folder",
		Long: `Extracts, chunks and embeds each PDF directly inside --path and upserts
the chunks into the configured collection. Re-ingesting unchanged files is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if prune {
				a.Indexer.Prune = true
			}
			docs := 0
			a.Indexer.OnDocument = func(source string, chunks int) {
				docs++
				cmd.Printf("Ingested %s: %d chunks.\n", source, chunks)
			}
			total, err := a.RAG.Ingest(cmd.Context(), path)
			if err != nil {
				return err
			}
			if docs == 0 {
				cmd.Println("No PDFs found.")
				return nil
			}
			cmd.Printf("Done. Total chunks: %d\n", total)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "folder with PDFs")
	cmd.Flags().BoolVar(&prune, "prune", false, "remove stale chunks of re-ingested files")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}
