package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/askpdf-go/internal/audit"
	"github.com/54b3r/askpdf-go/internal/config"
	"github.com/54b3r/askpdf-go/internal/logging"
)

// NewResetCmd constructs the `askpdf reset` command, which removes every
// stored vector, registered document and conversation message.
func NewResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all indexed documents and history",
		Long: `Clear the vector store (dropping the Qdrant collection or emptying the
local collection), then delete every registered document and conversation
message. This cannot be undone.

Examples:
  askpdf reset --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("reset: refusing to delete data without --yes")
			}
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			st, err := openStores(ctx, log, config.RuntimeFromEnv(), 0)
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.vectors.Clear(ctx); err != nil {
				return fmt.Errorf("reset: clear vectors: %w", err)
			}
			if err := st.db.Reset(ctx); err != nil {
				return fmt.Errorf("reset: %w", err)
			}

			audit.LogDataChange(ctx, log, audit.ActionReset, "", "vector_backend="+st.vectors.Backend())
			log.Info("store reset", slog.String("data_dir", st.dataDir))
			fmt.Fprintln(cmd.OutOrStdout(), "all documents and history deleted")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}
