// Package chunker splits document text into fixed-size overlapping windows.
// Windows are measured in Unicode code points and ignore sentence or word
// boundaries. Offsets count runes, so on astral-plane input the boundaries
// differ from splitters that count UTF-16 code units.
package chunker

import (
	"fmt"

	"github.com/54b3r/askpdf-go/internal/rag"
)

// Defaults used when the caller does not configure chunking.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Validate checks that chunkSize and overlap describe a window that always
// advances.
func Validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("chunker: %w: chunk size must be positive, got %d", rag.ErrInvalidConfiguration, chunkSize)
	}
	if overlap < 0 {
		return fmt.Errorf("chunker: %w: overlap must not be negative, got %d", rag.ErrInvalidConfiguration, overlap)
	}
	if overlap >= chunkSize {
		return fmt.Errorf("chunker: %w: overlap %d must be smaller than chunk size %d", rag.ErrInvalidConfiguration, overlap, chunkSize)
	}
	return nil
}

// Split cuts text into windows of chunkSize code points, each starting
// chunkSize-overlap code points after the previous one, until the start
// offset reaches the end of the text. The final window may be shorter, and
// a window that merely repeats the tail of its predecessor is still emitted.
// Empty text yields no chunks.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if err := Validate(chunkSize, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}, nil
	}

	step := chunkSize - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := min(start+chunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}

// Count returns the number of chunks Split would produce for a text of n
// code points.
func Count(n, chunkSize, overlap int) int {
	if n <= 0 || chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return 0
	}
	step := chunkSize - overlap
	return (n + step - 1) / step
}
