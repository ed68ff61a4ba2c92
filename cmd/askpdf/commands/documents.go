package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/askpdf-go/internal/config"
	"github.com/54b3r/askpdf-go/internal/logging"
)

// NewDocumentsCmd constructs the `askpdf documents` command, which lists the
// registered documents newest first.
func NewDocumentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs", "ls"},
		Short:   "List indexed documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, _, err := openRegistry(logging.FromContext(ctx), config.RuntimeFromEnv())
			if err != nil {
				return fmt.Errorf("documents: %w", err)
			}
			defer func() { _ = db.Close() }()

			docs, err := db.List(ctx)
			if err != nil {
				return fmt.Errorf("documents: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCHUNKS\tUPLOADED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.ID, d.DisplayName, d.ChunkCount, d.UploadedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}
