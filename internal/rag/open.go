package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StoreConfig selects and configures the vector store backends.
type StoreConfig struct {
	// Qdrant configures the remote backend. Nil means the local store only.
	Qdrant *QdrantConfig

	// Local configures the JSON file backend used directly or as fallback.
	Local *LocalConfig

	// PingTimeout bounds the startup health check against Qdrant.
	// Defaults to 3s if zero.
	PingTimeout time.Duration
}

// Open returns a FallbackStore whose backend is chosen up front: Qdrant when
// it is configured and answers a health check, otherwise the local store.
// A failed health check leaves the handle already switched to local.
func Open(ctx context.Context, cfg *StoreConfig, log *slog.Logger) (*FallbackStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg == nil || cfg.Local == nil {
		return nil, fmt.Errorf("rag: %w: local store configuration is required", ErrInvalidConfiguration)
	}
	if cfg.Local.Logger == nil {
		cfg.Local.Logger = log
	}

	local, err := NewLocalStore(cfg.Local)
	if err != nil {
		return nil, err
	}

	if cfg.Qdrant == nil {
		log.Info("vector store: qdrant not configured, using local store",
			slog.String("path", local.Path()),
		)
		fs := &FallbackStore{primary: local, fallback: local, log: log}
		fs.degraded.Store(true)
		return fs, nil
	}

	remote, err := NewQdrantStore(cfg.Qdrant)
	if err != nil {
		return nil, err
	}

	fs, err := NewFallbackStore(remote, local, log)
	if err != nil {
		return nil, err
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := remote.Ping(pingCtx); err != nil {
		fs.degraded.Store(true)
		log.Warn("vector store: qdrant unreachable at startup, using local store",
			slog.String("host", cfg.Qdrant.Host),
			slog.Int("port", cfg.Qdrant.Port),
			slog.String("path", local.Path()),
			slog.String("error", err.Error()),
		)
		return fs, nil
	}

	log.Info("vector store: using qdrant",
		slog.String("host", cfg.Qdrant.Host),
		slog.Int("port", cfg.Qdrant.Port),
		slog.String("collection", cfg.Qdrant.Collection),
	)
	return fs, nil
}
