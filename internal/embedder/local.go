package embedder

import (
	"context"
	"unicode/utf16"
)

// defaultLocalDimensions is the vector length of the local embedder.
const defaultLocalDimensions = 8

// LocalEmbedder implements rag.Embedder without any network call. Each text
// is reduced to a 32-bit rolling hash over its UTF-16 code units and the hash
// bits are spread across the vector. The result is deterministic across runs
// and platforms but carries no semantic meaning; it exists so the pipeline can
// run end to end without model credentials.
type LocalEmbedder struct {
	// dimensions is the output vector length.
	dimensions int
}

// NewLocalEmbedder constructs a LocalEmbedder. dimensions <= 0 selects the
// default of 8.
func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	if dimensions <= 0 {
		dimensions = defaultLocalDimensions
	}
	return &LocalEmbedder{dimensions: dimensions}
}

// Dimensions returns the output vector length.
func (e *LocalEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed hashes every text into a vector.
func (e *LocalEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, e.dimensions)
	}
	return out, nil
}

// hashVector computes hash = hash*31 + unit with 32-bit wraparound, then sets
// component i to byte (i mod 24) of the arithmetically shifted hash, scaled
// to [0, 1].
func hashVector(text string, dimensions int) []float32 {
	var hash int32
	for _, unit := range utf16.Encode([]rune(text)) {
		hash = hash*31 + int32(unit)
	}

	vec := make([]float32, dimensions)
	for i := range vec {
		vec[i] = float32((hash>>(i%24))&0xff) / 255
	}
	return vec
}
