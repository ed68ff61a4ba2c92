// Package embedder provides implementations of the rag.Embedder interface for
// converting text into dense vector embeddings. Gemini goes through the genai
// SDK, OpenAI, Azure OpenAI and Ollama through their REST APIs, and the local
// embedder needs no network at all.
package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/54b3r/askpdf-go/internal/rag"
)

// OpenAIConfig configures an OpenAIEmbedder for either api.openai.com (or a
// compatible server) or an Azure OpenAI resource.
type OpenAIConfig struct {
	// BaseURL is "https://api.openai.com/v1" for OpenAI and
	// "https://<resource>.openai.azure.com/openai" for Azure.
	BaseURL string
	APIKey  string
	// Model is the model name, or the deployment name on Azure.
	Model string
	// Dimensions requests shortened vectors from text-embedding-3 models and
	// is enforced on every reply. Zero keeps the model's native width.
	Dimensions int
	// Azure switches to deployment URLs and the api-key header.
	Azure bool
	// APIVersion is the api-version query value; Azure only.
	APIVersion string
	// Timeout bounds one embeddings call. Defaults to 30s.
	Timeout time.Duration
}

// OpenAIEmbedder is the rag.Embedder for the OpenAI embeddings API and its
// Azure flavour. It is safe for concurrent use.
type OpenAIEmbedder struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAIEmbedder returns an embedder for cfg.
func NewOpenAIEmbedder(cfg *OpenAIConfig) *OpenAIEmbedder {
	c := *cfg
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return &OpenAIEmbedder{cfg: c, client: &http.Client{Timeout: c.Timeout}}
}

// openaiEmbedRequest is the JSON body sent to the embeddings endpoint.
type openaiEmbedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// openaiEmbedResponse is the JSON body returned from the embeddings endpoint.
type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// openaiErrorMessage extracts error.message from a failed reply.
func openaiErrorMessage(raw []byte) string {
	var body struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil || body.Error == nil {
		return ""
	}
	return body.Error.Message
}

// endpoint returns the embeddings URL and the auth header for the service.
// Azure addresses the deployment in the path and authenticates with api-key.
func (e *OpenAIEmbedder) endpoint() (string, http.Header) {
	header := http.Header{}
	if !e.cfg.Azure {
		header.Set("Authorization", "Bearer "+e.cfg.APIKey)
		return e.cfg.BaseURL + "/embeddings", header
	}
	header.Set("api-key", e.cfg.APIKey)
	q := url.Values{"api-version": {e.cfg.APIVersion}}
	return e.cfg.BaseURL + "/deployments/" + url.PathEscape(e.cfg.Model) + "/embeddings?" + q.Encode(), header
}

// Embed converts a batch of texts into their corresponding embeddings. The
// reply is reordered by index; a short, duplicated or ragged batch is
// rejected with rag.ErrEmbedding.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	target, header := e.endpoint()
	var result openaiEmbedResponse
	err := postJSON(ctx, e.client, target, header,
		openaiEmbedRequest{Input: texts, Model: e.cfg.Model, Dimensions: e.cfg.Dimensions},
		&result, openaiErrorMessage)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai embedder: %w: index %d out of range [0, %d)", rag.ErrEmbedding, d.Index, len(texts))
		}
		if vectors[d.Index] != nil {
			return nil, fmt.Errorf("openai embedder: %w: index %d returned twice", rag.ErrEmbedding, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: %w: expected %d embeddings, got %d", rag.ErrEmbedding, len(texts), len(result.Data))
	}
	if err := checkBatch(len(texts), vectors, e.cfg.Dimensions); err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}
	return vectors, nil
}
