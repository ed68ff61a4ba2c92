// Package commands defines all Cobra CLI commands for the askpdf binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/askpdf-go/internal/audit"
	"github.com/54b3r/askpdf-go/internal/config"
	"github.com/54b3r/askpdf-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "askpdf",
		Short: "Ask questions about your PDF and text documents",
		Long: `askpdf indexes uploaded documents into a vector store and answers
questions about them with an LLM, using only the retrieved passages.

Vectors are stored in Qdrant when QDRANT_HOST is set and reachable, and in a
local JSON file under the data directory otherwise.

The model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.askpdf/config.yaml).
See 'askpdf --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Env vars always override YAML values.
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			// Re-read LOG_LEVEL/LOG_FORMAT in case the config file set them.
			log = logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)
			cmd.SetContext(ctx)

			audit.LogCommandStart(ctx, log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.askpdf/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewAskCmd(),
		NewDocumentsCmd(),
		NewHistoryCmd(),
		NewResetCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
