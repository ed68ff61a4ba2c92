package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/54b3r/askpdf-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOllamaModel  = "nomic-embed-text"
	defaultOpenAIModel  = "text-embedding-3-small"
	defaultBedrockModel = "amazon.titan-embed-text-v2"
	defaultGeminiModel  = "gemini-embedding-001"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	// Other Ollama models may differ; override with EMBEDDING_DIMENSIONS.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
	// defaultGeminiDimensions is the output dimension of gemini-embedding-001.
	defaultGeminiDimensions = 3072
)

// BackendLocal selects the deterministic offline embedder.
const BackendLocal = "local"

// Settings describes the embedder NewFromEnv resolved.
type Settings struct {
	// Backend is the resolved backend name (local, gemini, openai, azure, ollama).
	Backend string
	// Model is the embedding model name; empty for the local backend.
	Model string
	// Dimensions is the expected vector length.
	Dimensions int
}

// DefaultDimensions returns the correct default embedding vector size for the
// given backend name. Callers that need to pre-configure a vector store (e.g.
// Qdrant collection creation) should use this rather than hardcoding a value.
// EMBEDDING_DIMENSIONS always takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case BackendLocal:
		return defaultLocalDimensions
	case "ollama":
		return defaultOllamaDimensions
	case "gemini":
		return defaultGeminiDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// ForceLocal reports whether EMBEDDING_FORCE_LOCAL asks for the offline embedder.
func ForceLocal() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("EMBEDDING_FORCE_LOCAL")))
	return v == "1" || v == "true" || v == "yes"
}

// resolveBackend returns the effective embedding backend name.
func resolveBackend() string {
	if ForceLocal() {
		return BackendLocal
	}
	backend := getEnv("EMBEDDING_PROVIDER")
	if backend == "" {
		backend = getEnvOrDefault("MODEL_PROVIDER", "gemini")
	}
	return backend
}

// firstEnv returns the first non-empty value among the named variables.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// NewFromEnv constructs a rag.Embedder using cascading defaults that inherit
// from the chat provider configuration when embedding-specific overrides are
// not set.
//
// Resolution order:
//
//  1. EMBEDDING_FORCE_LOCAL=1 selects the local embedder unconditionally
//  2. EMBEDDING_PROVIDER; if unset, inherits MODEL_PROVIDER (default: gemini)
//  3. Per-backend credentials are inherited from the chat provider's env vars;
//     a credentialed backend without a key degrades to the local embedder
//  4. EMBEDDING_MODEL overrides the default model for the resolved backend
//  5. EMBEDDING_API_KEY overrides the inherited API key
//  6. EMBEDDING_ENDPOINT overrides the inherited endpoint
//  7. EMBEDDING_DIMENSIONS overrides the default dimensions
func NewFromEnv(ctx context.Context, log *slog.Logger) (rag.Embedder, Settings, error) {
	if log == nil {
		log = slog.Default()
	}
	backend := resolveBackend()

	local := func(reason string) (rag.Embedder, Settings, error) {
		dims := getEnvInt("EMBEDDING_DIMENSIONS", defaultLocalDimensions)
		if reason != "" {
			log.Warn("embedder: no credentials for backend, using local deterministic embedder",
				slog.String("backend", backend),
				slog.String("reason", reason),
			)
		}
		e := NewLocalEmbedder(dims)
		return e, Settings{Backend: BackendLocal, Dimensions: e.Dimensions()}, nil
	}

	switch backend {
	case BackendLocal:
		return local("")

	case "gemini":
		apiKey := firstEnv("EMBEDDING_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
		if apiKey == "" {
			return local("GEMINI_API_KEY, GOOGLE_API_KEY and EMBEDDING_API_KEY are unset")
		}
		model := getEnvOrDefault("EMBEDDING_MODEL", defaultGeminiModel)
		dims := getEnvInt("EMBEDDING_DIMENSIONS", 0)
		e, err := NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     apiKey,
			Model:      model,
			Dimensions: dims,
			BaseURL:    getEnv("EMBEDDING_ENDPOINT"),
		})
		if err != nil {
			return nil, Settings{}, err
		}
		if dims == 0 {
			dims = defaultGeminiDimensions
		}
		return e, Settings{Backend: backend, Model: model, Dimensions: dims}, nil

	case "ollama":
		host := getEnv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		model := getEnvOrDefault("EMBEDDING_MODEL", defaultOllamaModel)
		dims := getEnvInt("EMBEDDING_DIMENSIONS", defaultOllamaDimensions)
		return NewOllamaEmbedder(&OllamaConfig{
			Host:  host,
			Model: model,
		}), Settings{Backend: backend, Model: model, Dimensions: dims}, nil

	case "openai":
		dims := getEnvInt("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions)
		apiKey := firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY")
		if apiKey == "" {
			return local("OPENAI_API_KEY and EMBEDDING_API_KEY are unset")
		}
		baseURL := getEnv("EMBEDDING_ENDPOINT")
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel)
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      model,
			Dimensions: dims,
		}), Settings{Backend: backend, Model: model, Dimensions: dims}, nil

	case "azure":
		dims := getEnvInt("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions)
		apiKey := firstEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY")
		if apiKey == "" {
			return local("AZURE_OPENAI_API_KEY and EMBEDDING_API_KEY are unset")
		}
		endpoint := firstEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
		if endpoint == "" {
			return nil, Settings{}, fmt.Errorf("embedder: %w: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT", rag.ErrInvalidConfiguration)
		}
		apiVersion := getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2025-04-01-preview")
		model := getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel)
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    endpoint + "/openai",
			APIKey:     apiKey,
			Model:      model,
			Dimensions: dims,
			Azure:      true,
			APIVersion: apiVersion,
		}), Settings{Backend: backend, Model: model, Dimensions: dims}, nil

	case "bedrock":
		return nil, Settings{}, fmt.Errorf("embedder: %w: bedrock embedding is not supported (model: %s); set EMBEDDING_PROVIDER to gemini, openai, azure, ollama or local",
			rag.ErrInvalidConfiguration, defaultBedrockModel)

	default:
		return nil, Settings{}, fmt.Errorf("embedder: %w: unknown backend %q, valid values: gemini, openai, azure, ollama, local",
			rag.ErrInvalidConfiguration, backend)
	}
}

// getEnv returns the value of the named environment variable, or empty string.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
