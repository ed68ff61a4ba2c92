package rag

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// stubEmbedder returns a fixed vector per text or a configured error.
type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func TestEmbedOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		v, err := EmbedOne(ctx, &stubEmbedder{vector: []float32{1, 2}}, "q")
		if err != nil {
			t.Fatalf("EmbedOne: %v", err)
		}
		if len(v) != 2 {
			t.Errorf("len = %d, want 2", len(v))
		}
	})

	t.Run("upstream error", func(t *testing.T) {
		t.Parallel()
		upstream := errors.New("503")
		_, err := EmbedOne(ctx, &stubEmbedder{err: upstream}, "q")
		if !errors.Is(err, ErrEmbedding) || !errors.Is(err, upstream) {
			t.Errorf("want ErrEmbedding wrapping upstream, got %v", err)
		}
	})

	t.Run("empty vector", func(t *testing.T) {
		t.Parallel()
		_, err := EmbedOne(ctx, &stubEmbedder{vector: []float32{}}, "q")
		if !errors.Is(err, ErrEmbedding) {
			t.Errorf("want ErrEmbedding, got %v", err)
		}
	})
}

func TestNewRetriever_Validation(t *testing.T) {
	t.Parallel()
	if _, err := NewRetriever(nil, &fakeStore{}, 3); err == nil {
		t.Error("want error for nil embedder")
	}
	if _, err := NewRetriever(&stubEmbedder{}, nil, 3); err == nil {
		t.Error("want error for nil store")
	}
	r, err := NewRetriever(&stubEmbedder{}, &fakeStore{}, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	if r.defaultTopK != DefaultTopK {
		t.Errorf("defaultTopK = %d, want %d", r.defaultTopK, DefaultTopK)
	}
}

func TestDefaultRetriever_Retrieve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := NewLocalStore(&LocalConfig{Path: filepath.Join(t.TempDir(), "v.json")})
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	records := []Record{
		{ID: "a", Vector: []float32{1, 0}, Text: "alpha"},
		{ID: "b", Vector: []float32{0.9, 0.1}, Text: "beta"},
		{ID: "c", Vector: []float32{0, 1}, Text: "gamma"},
		{ID: "d", Vector: []float32{0.5, 0.5}, Text: "delta"},
	}
	if err := store.AddRecords(ctx, records, "doc-1"); err != nil {
		t.Fatalf("AddRecords: %v", err)
	}

	r, err := NewRetriever(&stubEmbedder{vector: []float32{1, 0}}, store, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	res, err := r.Retrieve(ctx, "question", 0, "doc-1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Len() != DefaultTopK {
		t.Fatalf("want %d results, got %d", DefaultTopK, res.Len())
	}
	if res.Documents[0] != "alpha" {
		t.Errorf("top result = %q, want alpha", res.Documents[0])
	}
}

func TestDefaultRetriever_EmbeddingFailure(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	r, _ := NewRetriever(&stubEmbedder{err: errors.New("down")}, store, 3)
	_, err := r.Retrieve(context.Background(), "q", 3, "")
	if !errors.Is(err, ErrEmbedding) {
		t.Errorf("want ErrEmbedding, got %v", err)
	}
	if store.queries != 0 {
		t.Error("store must not be queried when embedding fails")
	}
}
