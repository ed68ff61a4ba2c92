package rag

import (
	"context"
	"fmt"
)

// EmbedOne embeds a single text. Upstream failures and empty results are both
// reported as ErrEmbedding.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("rag: %w: %w", ErrEmbedding, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("rag: %w: embedder returned empty result", ErrEmbedding)
	}
	return vectors[0], nil
}
