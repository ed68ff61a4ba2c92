package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

// fakeStore is a VectorStore that records calls and returns a configured error.
type fakeStore struct {
	mu      sync.Mutex
	err     error
	added   []Record
	queries int
	clears  int
	closed  bool
}

func (f *fakeStore) AddRecords(_ context.Context, records []Record, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, records...)
	return nil
}

func (f *fakeStore) Query(_ context.Context, _ []float32, _ int, _ string) (*QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	res := &QueryResult{}
	for _, r := range f.added {
		res.append(r.ID, r.Text, r.Metadata, 1)
	}
	return res, nil
}

func (f *fakeStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	if f.err != nil {
		return f.err
	}
	f.added = nil
	return nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func TestFallbackStore_UsesPrimaryWhileHealthy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	primary, fallback := &fakeStore{}, &fakeStore{}
	s, err := NewFallbackStore(primary, fallback, nil)
	if err != nil {
		t.Fatalf("NewFallbackStore: %v", err)
	}

	if err := s.AddRecords(ctx, []Record{{ID: "a"}}, ""); err != nil {
		t.Fatalf("AddRecords: %v", err)
	}
	if len(primary.added) != 1 || len(fallback.added) != 0 {
		t.Errorf("primary=%d fallback=%d, want 1/0", len(primary.added), len(fallback.added))
	}
	if s.Degraded() {
		t.Error("store degraded without a failure")
	}
	if s.Backend() != "qdrant" {
		t.Errorf("Backend = %q, want qdrant", s.Backend())
	}
}

func TestFallbackStore_SwitchesOnUnavailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	primary := &fakeStore{err: fmt.Errorf("qdrant: upsert: %w", ErrStoreUnavailable)}
	fallback := &fakeStore{}
	s, err := NewFallbackStore(primary, fallback, nil)
	if err != nil {
		t.Fatalf("NewFallbackStore: %v", err)
	}

	if err := s.AddRecords(ctx, []Record{{ID: "a", Text: "x"}}, ""); err != nil {
		t.Fatalf("AddRecords should be retried on fallback, got %v", err)
	}
	if !s.Degraded() {
		t.Fatal("store not degraded after unavailability")
	}
	if len(fallback.added) != 1 {
		t.Fatalf("fallback received %d records, want 1", len(fallback.added))
	}

	// Subsequent calls go straight to the fallback, even if the primary recovers.
	primary.err = nil
	res, err := s.Query(ctx, []float32{1}, 3, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Len() != 1 {
		t.Errorf("want 1 result from fallback, got %d", res.Len())
	}
	if primary.queries != 0 {
		t.Errorf("primary queried %d times after switch", primary.queries)
	}
	if s.Backend() != "local" {
		t.Errorf("Backend = %q, want local", s.Backend())
	}
}

func TestFallbackStore_QueryAndClearSwitch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("query", func(t *testing.T) {
		t.Parallel()
		primary := &fakeStore{err: ErrStoreUnavailable}
		fallback := &fakeStore{}
		s, _ := NewFallbackStore(primary, fallback, nil)
		if _, err := s.Query(ctx, []float32{1}, 3, ""); err != nil {
			t.Fatalf("Query: %v", err)
		}
		if fallback.queries != 1 {
			t.Errorf("fallback queries = %d, want 1", fallback.queries)
		}
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()
		primary := &fakeStore{err: ErrStoreUnavailable}
		fallback := &fakeStore{}
		s, _ := NewFallbackStore(primary, fallback, nil)
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if fallback.clears != 1 {
			t.Errorf("fallback clears = %d, want 1", fallback.clears)
		}
	})
}

func TestFallbackStore_OtherErrorsSurface(t *testing.T) {
	t.Parallel()
	boom := errors.New("bad request")
	primary, fallback := &fakeStore{err: boom}, &fakeStore{}
	s, _ := NewFallbackStore(primary, fallback, nil)

	err := s.AddRecords(context.Background(), []Record{{ID: "a"}}, "")
	if !errors.Is(err, boom) {
		t.Fatalf("want primary error, got %v", err)
	}
	if s.Degraded() {
		t.Error("non-transport error must not switch backends")
	}
	if len(fallback.added) != 0 {
		t.Error("fallback written after non-transport error")
	}
}

func TestFallbackStore_Close(t *testing.T) {
	t.Parallel()
	primary, fallback := &fakeStore{}, &fakeStore{}
	s, _ := NewFallbackStore(primary, fallback, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !primary.closed || !fallback.closed {
		t.Error("both stores should be closed")
	}
}

func TestNewFallbackStore_NilStores(t *testing.T) {
	t.Parallel()
	if _, err := NewFallbackStore(nil, &fakeStore{}, nil); err == nil {
		t.Error("want error for nil primary")
	}
	if _, err := NewFallbackStore(&fakeStore{}, nil, nil); err == nil {
		t.Error("want error for nil fallback")
	}
}

func TestOpen_WithoutQdrantUsesLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := Open(ctx, &StoreConfig{
		Local: &LocalConfig{Path: filepath.Join(t.TempDir(), "vectors.json")},
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if !s.Degraded() || s.Backend() != "local" {
		t.Fatalf("want local backend, got %q", s.Backend())
	}
	if err := s.AddRecords(ctx, []Record{{ID: "a", Vector: []float32{1, 0}, Text: "t"}}, "doc-1"); err != nil {
		t.Fatalf("AddRecords: %v", err)
	}
	res, err := s.Query(ctx, []float32{1, 0}, 3, "doc-1")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Len() != 1 {
		t.Errorf("want 1 result, got %d", res.Len())
	}
}

func TestOpen_RequiresLocalConfig(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), &StoreConfig{}, nil)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("want ErrInvalidConfiguration, got %v", err)
	}
}

// pingStore adds a Ping method to fakeStore.
type pingStore struct {
	fakeStore
	pingErr error
}

func (p *pingStore) Ping(context.Context) error { return p.pingErr }

func TestFallbackStore_Ping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	down := &pingStore{pingErr: ErrStoreUnavailable}
	s, err := NewFallbackStore(down, &fakeStore{}, nil)
	if err != nil {
		t.Fatalf("NewFallbackStore: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Ping = %v, want primary's error", err)
	}

	s.degraded.Store(true)
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping after switch = %v, want nil", err)
	}

	plain, _ := NewFallbackStore(&fakeStore{}, &fakeStore{}, nil)
	if err := plain.Ping(ctx); err != nil {
		t.Errorf("Ping without a pinger = %v, want nil", err)
	}
}
