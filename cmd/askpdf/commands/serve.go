package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/askpdf-go/internal/config"
	"github.com/54b3r/askpdf-go/internal/logging"
	"github.com/54b3r/askpdf-go/internal/provider"
	"github.com/54b3r/askpdf-go/internal/server"
	"github.com/54b3r/askpdf-go/internal/tracing"
)

// NewServeCmd constructs the `askpdf serve` command, which starts the HTTP
// API for uploading documents and asking questions.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the askpdf HTTP server",
		Long: `Start the askpdf HTTP server.

Endpoints:
  POST /api/upload      multipart upload, file in the "pdf" field
  POST /api/chat        {"question": "...", "documentId": "..."}
  GET  /api/documents   registered documents, newest first
  GET  /api/history     recent messages (?documentId=&limit=)
  GET  /api/health      liveness
  GET  /api/ready       readiness of the registry, model and vector store
  GET  /metrics         Prometheus metrics

Examples:
  askpdf serve
  askpdf serve --port 9090
  MODEL_PROVIDER=ollama QDRANT_HOST=localhost askpdf serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)
			rt := config.RuntimeFromEnv()

			flush := tracing.Setup(log)
			defer flush()

			emb, settings, err := buildEmbedder(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			st, err := openStores(ctx, log, rt, settings.Dimensions)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = st.Close() }()

			ingester, err := buildIngestion(emb, st, rt)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			asker, _, providerCfg, err := buildQA(ctx, log, emb, st, rt)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			if !cmd.Flags().Changed("host") && rt.Host != "" {
				host = rt.Host
			}
			if !cmd.Flags().Changed("port") && rt.Port != 0 {
				port = rt.Port
			}

			srv, err := server.New(server.Deps{
				Asker:     asker,
				Ingester:  ingester,
				Documents: st.db,
				History:   st.db,
			}, &server.Config{
				Host:           host,
				Port:           port,
				MaxUploadBytes: rt.MaxUploadBytes,
				Logger:         log,
				Pingers:        buildPingers(st, providerCfg),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting",
				slog.String("provider", string(providerCfg.Backend)),
				slog.String("vector_backend", st.vectors.Backend()),
				slog.String("data_dir", st.dataDir),
			)
			return srv.Start(ctx) //nolint:wrapcheck // CLI entry point
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (env: ASKPDF_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (env: ASKPDF_PORT)")

	return cmd
}

// buildPingers assembles the readiness checks: the registry always, the
// model backend when it has a token-free health check, and the vector store.
func buildPingers(st *stores, providerCfg *provider.Config) []server.Pinger {
	pingers := []server.Pinger{
		server.NewDependencyPinger("sqlite", st.db),
		server.NewDependencyPinger("vector-store", st.vectors),
	}
	if p := server.NewLLMPinger(provider.HealthCheckFor(providerCfg), string(providerCfg.Backend)); p != nil {
		pingers = append(pingers, p)
	}
	return pingers
}
