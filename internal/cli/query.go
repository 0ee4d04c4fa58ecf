package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"pdfrag/internal/answer"
)

const previewRunes = 200

func newQueryCommand(rt *runtime) *cobra.Command {
	var (
		question string
		k        int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Answer a question from the indexed PDFs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("k") {
				k = rt.cfg.Retrieval.TopK
			}
			a, err := rt.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ans, err := a.RAG.Ask(cmd.Context(), question, k)
			if err != nil {
				return err
			}
			cmd.Println("Retrieved chunks:")
			for i, h := range ans.Hits {
				cmd.Printf("[%d] %s#%d score=%.3f\n", i+1, h.Source, h.Ordinal, h.Distance)
				cmd.Println(strings.ReplaceAll(answer.Truncate(h.Text, previewRunes), "\n", " ") + " ...")
				cmd.Println(strings.Repeat("-", 60))
			}
			cmd.Println("\n---\nAnswer:\n" + ans.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&question, "q", "", "your question")
	cmd.Flags().IntVar(&k, "k", 4, "top-k retrieved chunks (defaults to TOP_K)")
	_ = cmd.MarkFlagRequired("q")
	return cmd
}
