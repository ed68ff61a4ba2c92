package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/askpdf-go/internal/config"
	"github.com/54b3r/askpdf-go/internal/logging"
	"github.com/54b3r/askpdf-go/internal/tracing"
)

// NewAskCmd constructs the `askpdf ask` command, which answers one question
// from the indexed documents and prints the answer to stdout.
func NewAskCmd() *cobra.Command {
	var documentID string
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the indexed documents",
		Long: `Retrieve the passages most similar to the question and ask the model to
answer from them alone. When nothing has been indexed the model is not
called and a fixed "no information" answer is printed.

Examples:
  askpdf ask "what is the notice period?"
  askpdf ask --document 6f1c... "who signed the agreement?"
  askpdf ask --sources "summarise the key risks"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)
			rt := config.RuntimeFromEnv()

			flush := tracing.Setup(log)
			defer flush()

			emb, settings, err := buildEmbedder(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			st, err := openStores(ctx, log, rt, settings.Dimensions)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = st.Close() }()

			pipeline, _, _, err := buildQA(ctx, log, emb, st, rt)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			resp, err := pipeline.Ask(ctx, strings.Join(args, " "), documentID)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Answer)
			if showSources {
				for _, src := range resp.Sources {
					fmt.Fprintf(out, "  [%.3f] %s (%s)\n", src.Score, src.ID, src.DocumentID)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&documentID, "document", "d", "", "Restrict retrieval to one document id")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Print the chunks the answer was built from")

	return cmd
}
