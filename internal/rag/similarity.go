package rag

import "math"

// Cosine returns the cosine similarity of a and b. The dot product runs over
// a; components of b past its length count as zero. A zero magnitude on
// either side yields 0.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i, av := range a {
		if i < len(b) {
			dot += float64(av) * float64(b[i])
		}
		normA += float64(av) * float64(av)
	}
	for _, bv := range b {
		normB += float64(bv) * float64(bv)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
