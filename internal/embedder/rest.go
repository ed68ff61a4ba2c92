package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/54b3r/askpdf-go/internal/rag"
)

// maxResponseBytes caps how much of an embeddings response is read.
const maxResponseBytes = 64 << 20

// postJSON sends body as JSON to url and decodes a 2xx reply into out.
// For any other status errMessage pulls the service's own message out of the
// raw reply; it may return "" when the reply carries none. Every failure
// wraps rag.ErrEmbedding.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, body, out any, errMessage func([]byte) string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %w", rag.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: create request: %w", rag.ErrEmbedding, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", rag.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", rag.ErrEmbedding, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if msg := errMessage(raw); msg != "" {
			return fmt.Errorf("%w: HTTP %d: %s", rag.ErrEmbedding, resp.StatusCode, msg)
		}
		return fmt.Errorf("%w: HTTP %d", rag.ErrEmbedding, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", rag.ErrEmbedding, err)
	}
	return nil
}

// checkBatch verifies that vectors holds one non-empty vector per input and
// that all of them share one width, equal to want when want is positive.
func checkBatch(inputs int, vectors [][]float32, want int) error {
	if len(vectors) != inputs {
		return fmt.Errorf("%w: expected %d embeddings, got %d", rag.ErrEmbedding, inputs, len(vectors))
	}
	dims := want
	for i, v := range vectors {
		switch {
		case len(v) == 0:
			return fmt.Errorf("%w: empty embedding at index %d", rag.ErrEmbedding, i)
		case dims <= 0:
			dims = len(v)
		case len(v) != dims:
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d", rag.ErrEmbedding, i, len(v), dims)
		}
	}
	return nil
}
