package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/askpdf-go/internal/config"
	"github.com/54b3r/askpdf-go/internal/logging"
)

// NewHistoryCmd constructs the `askpdf history` command, which prints the
// most recent questions and answers, oldest first.
func NewHistoryCmd() *cobra.Command {
	var documentID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent questions and answers",
		Long: `Print the most recent conversation messages, oldest first. Questions asked
across all documents are stored without a document id and are shown when
--document is omitted.

Examples:
  askpdf history
  askpdf history --document 6f1c... --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if limit <= 0 {
				return fmt.Errorf("history: --limit must be positive")
			}

			db, _, err := openRegistry(logging.FromContext(ctx), config.RuntimeFromEnv())
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			defer func() { _ = db.Close() }()

			msgs, err := db.Recent(ctx, documentID, limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, m := range msgs {
				fmt.Fprintf(out, "%s> %s\n", m.Role, m.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&documentID, "document", "d", "", "Show messages for one document id")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of messages")

	return cmd
}
