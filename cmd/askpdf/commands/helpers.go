package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/askpdf-go/internal/config"
	"github.com/54b3r/askpdf-go/internal/embedder"
	"github.com/54b3r/askpdf-go/internal/ingestion"
	"github.com/54b3r/askpdf-go/internal/provider"
	"github.com/54b3r/askpdf-go/internal/qa"
	"github.com/54b3r/askpdf-go/internal/rag"
	"github.com/54b3r/askpdf-go/internal/store"
)

// stores holds the persistent state every command works against.
type stores struct {
	// dataDir is the directory holding the registry and the local vectors.
	dataDir string
	// db is the document registry and conversation history.
	db *store.SQLiteStore
	// vectors is the vector store handle, Qdrant or local.
	vectors *rag.FallbackStore
}

// Close releases both stores.
func (s *stores) Close() error {
	return errors.Join(s.vectors.Close(), s.db.Close())
}

// openStores opens the SQLite registry and the vector store. vectorSize is
// the embedding width used when a Qdrant collection has to be created; zero
// defers to the first written vector.
func openStores(ctx context.Context, log *slog.Logger, rt config.Runtime, vectorSize int) (*stores, error) {
	db, dataDir, err := openRegistry(log, rt)
	if err != nil {
		return nil, err
	}

	cfg := &rag.StoreConfig{
		Local: &rag.LocalConfig{
			Path:       filepath.Join(dataDir, "vectors.json"),
			Collection: rt.QdrantCollection,
			Logger:     log,
		},
	}
	if rt.QdrantHost != "" {
		cfg.Qdrant = &rag.QdrantConfig{
			Host:       rt.QdrantHost,
			Port:       rt.QdrantPort,
			Collection: rt.QdrantCollection,
			VectorSize: uint64(max(vectorSize, 0)), //nolint:gosec // bounded by max
			APIKey:     rt.QdrantAPIKey,
			UseTLS:     rt.QdrantTLS,
		}
	}

	vectors, err := rag.Open(ctx, cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	return &stores{dataDir: dataDir, db: db, vectors: vectors}, nil
}

// openRegistry opens the SQLite registry under the configured data
// directory and returns it with the resolved directory.
func openRegistry(log *slog.Logger, rt config.Runtime) (*store.SQLiteStore, string, error) {
	dataDir := rt.DataDir
	if dataDir == "" {
		d, err := store.DefaultDataDir()
		if err != nil {
			return nil, "", err
		}
		dataDir = d
	}

	dbPath, err := store.DBPath(dataDir)
	if err != nil {
		return nil, "", err
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, "", err
	}
	log.Debug("registry opened", slog.String("path", dbPath))
	return db, dataDir, nil
}

// buildEmbedder validates the embedding settings and constructs the embedder.
func buildEmbedder(ctx context.Context, log *slog.Logger) (rag.Embedder, embedder.Settings, error) {
	if err := embedder.ValidateForRAG(log); err != nil {
		return nil, embedder.Settings{}, err
	}
	emb, settings, err := embedder.NewFromEnv(ctx, log)
	if err != nil {
		return nil, embedder.Settings{}, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised",
		slog.String("backend", settings.Backend),
		slog.String("model", settings.Model),
		slog.Int("dimensions", settings.Dimensions),
	)
	return emb, settings, nil
}

// buildIngestion constructs the ingestion pipeline over st.
func buildIngestion(emb rag.Embedder, st *stores, rt config.Runtime) (*ingestion.Pipeline, error) {
	p, err := ingestion.NewPipeline(emb, st.vectors, st.db, ingestion.NewFileExtractor(nil), &ingestion.Config{
		ChunkSize:        rt.ChunkSize,
		ChunkOverlap:     rt.ChunkOverlap,
		EmbedConcurrency: rt.EmbedConcurrency,
		EmbedRPS:         rt.EmbedRPS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	return p, nil
}

// buildQA constructs the chat model and the question answering pipeline.
func buildQA(ctx context.Context, log *slog.Logger, emb rag.Embedder, st *stores, rt config.Runtime) (*qa.Pipeline, model.BaseChatModel, *provider.Config, error) {
	chatModel, providerCfg, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", providerCfg.Model()),
	)

	retriever, err := rag.NewRetriever(emb, st.vectors, rt.TopK)
	if err != nil {
		return nil, nil, nil, err
	}
	gen, err := qa.NewChatGenerator(chatModel)
	if err != nil {
		return nil, nil, nil, err
	}
	pipeline, err := qa.New(&qa.Config{
		Retriever:        retriever,
		Generator:        gen,
		History:          st.db,
		TopK:             rt.TopK,
		MaxContextTokens: rt.MaxContextTokens,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create query pipeline: %w", err)
	}
	return pipeline, chatModel, providerCfg, nil
}
