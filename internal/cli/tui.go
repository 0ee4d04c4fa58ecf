package cli

import (
	"github.com/spf13/cobra"

	"pdfrag/internal/tui"
)

func newTUICommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive terminal UI",
		Long: `Opens a terminal UI. Type a question to search, or /ingest <folder>
to index PDFs. Use up/down to move between passages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return tui.Run(cmd.Context(), a.RAG, a.Highlighter, rt.cfg.Retrieval.TopK)
		},
	}
}
