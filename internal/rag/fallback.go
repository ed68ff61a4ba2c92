package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// FallbackStore routes every operation to a primary store until the primary
// reports ErrStoreUnavailable, then switches permanently to the fallback and
// retries the failed operation there. Callers never see the unavailability.
type FallbackStore struct {
	// primary is the preferred backend, usually a QdrantStore.
	primary VectorStore

	// fallback is the backend used after the switch, usually a LocalStore.
	fallback VectorStore

	// log records the switch.
	log *slog.Logger

	// degraded is set once the switch has happened.
	degraded atomic.Bool
}

// NewFallbackStore constructs a FallbackStore. A nil logger uses slog.Default().
func NewFallbackStore(primary, fallback VectorStore, log *slog.Logger) (*FallbackStore, error) {
	if primary == nil {
		return nil, fmt.Errorf("rag: primary store must not be nil")
	}
	if fallback == nil {
		return nil, fmt.Errorf("rag: fallback store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &FallbackStore{primary: primary, fallback: fallback, log: log}, nil
}

// Degraded reports whether the store has switched to its fallback.
func (s *FallbackStore) Degraded() bool {
	return s.degraded.Load()
}

// Backend names the store currently serving requests.
func (s *FallbackStore) Backend() string {
	if s.Degraded() {
		return "local"
	}
	return "qdrant"
}

// active returns the store that should serve the next call.
func (s *FallbackStore) active() VectorStore {
	if s.degraded.Load() {
		return s.fallback
	}
	return s.primary
}

// switchOver marks the store degraded when err is an unavailability error.
// It reports whether the caller should retry against the fallback.
func (s *FallbackStore) switchOver(err error) bool {
	if !errors.Is(err, ErrStoreUnavailable) {
		return false
	}
	if s.degraded.CompareAndSwap(false, true) {
		s.log.Warn("vector store: remote backend unavailable, switching to local fallback",
			slog.String("error", err.Error()),
		)
	}
	return true
}

// AddRecords writes to the active store.
func (s *FallbackStore) AddRecords(ctx context.Context, records []Record, documentID string) error {
	if s.degraded.Load() {
		return s.fallback.AddRecords(ctx, records, documentID)
	}
	err := s.primary.AddRecords(ctx, records, documentID)
	if err != nil && s.switchOver(err) {
		return s.fallback.AddRecords(ctx, records, documentID)
	}
	return err
}

// Query reads from the active store.
func (s *FallbackStore) Query(ctx context.Context, vector []float32, k int, documentID string) (*QueryResult, error) {
	if s.degraded.Load() {
		return s.fallback.Query(ctx, vector, k, documentID)
	}
	res, err := s.primary.Query(ctx, vector, k, documentID)
	if err != nil && s.switchOver(err) {
		return s.fallback.Query(ctx, vector, k, documentID)
	}
	return res, err
}

// Clear empties the active store.
func (s *FallbackStore) Clear(ctx context.Context) error {
	if s.degraded.Load() {
		return s.fallback.Clear(ctx)
	}
	err := s.primary.Clear(ctx)
	if err != nil && s.switchOver(err) {
		return s.fallback.Clear(ctx)
	}
	return err
}

// Close closes both stores and returns the first error.
func (s *FallbackStore) Close() error {
	return errors.Join(s.primary.Close(), s.fallback.Close())
}

// Ping checks the store currently serving requests. The local store has
// nothing to reach, so a degraded handle always reports healthy.
func (s *FallbackStore) Ping(ctx context.Context) error {
	if s.Degraded() {
		return nil
	}
	p, ok := s.primary.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}
