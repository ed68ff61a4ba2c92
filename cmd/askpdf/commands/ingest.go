package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/askpdf-go/internal/audit"
	"github.com/54b3r/askpdf-go/internal/config"
	"github.com/54b3r/askpdf-go/internal/ingestion"
	"github.com/54b3r/askpdf-go/internal/logging"
)

// NewIngestCmd constructs the `askpdf ingest` command, which extracts, chunks,
// embeds and stores one or more local files.
func NewIngestCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "ingest <file> [file...]",
		Short: "Index PDF or text files for question answering",
		Long: `Extract the text of each file, split it into overlapping chunks, embed
every chunk and store the vectors. PDF text is extracted with pdftotext
(poppler-utils), which must be on PATH. Plain text and markdown files are
read as-is.

Each file becomes one document with its own id; pass that id to
'askpdf ask --document' to scope questions to it.

Environment variables:
  EMBEDDING_PROVIDER        local, gemini, openai, azure, ollama
  ASKPDF_CHUNK_SIZE         characters per chunk (default: 1000)
  ASKPDF_CHUNK_OVERLAP      characters shared by neighbours (default: 200)
  ASKPDF_EMBED_CONCURRENCY  parallel embedding calls (default: 1)
  QDRANT_HOST               use Qdrant instead of the local store

Examples:
  askpdf ingest handbook.pdf
  askpdf ingest notes.md report.pdf
  askpdf ingest --name "Q3 report" ./tmp/upload-1234.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)
			rt := config.RuntimeFromEnv()

			if name != "" && len(args) > 1 {
				return fmt.Errorf("ingest: --name can only be used with a single file")
			}

			emb, settings, err := buildEmbedder(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			st, err := openStores(ctx, log, rt, settings.Dimensions)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = st.Close() }()

			pipeline, err := buildIngestion(emb, st, rt)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, path := range args {
				displayName := name
				if displayName == "" {
					displayName = ingestion.DisplayName(path)
				}

				res, err := pipeline.IngestFile(ctx, path, displayName)
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", path, err)
				}
				audit.LogDataChange(ctx, log, audit.ActionIngest, res.Document.ID, res.Document.DisplayName)
				log.Info("document ingested",
					slog.String("document_id", res.Document.ID),
					slog.Int("chunks", res.ChunkCount),
					slog.String("vector_backend", st.vectors.Backend()),
				)
				fmt.Fprintf(out, "%s\t%s\t%d chunks\n", res.Document.ID, res.Document.DisplayName, res.ChunkCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name for the document (default: file base name)")

	return cmd
}
