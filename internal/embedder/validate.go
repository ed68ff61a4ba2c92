package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding. If EMBEDDING_MODEL matches any
// of these, a warning is emitted so the operator knows they may have
// misconfigured the pipeline.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"solar",
	"vicuna",
	"falcon",
	"yi-",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// ValidateForRAG checks that the embedder configuration is coherent before
// any document is ingested. It returns an error if the configuration is
// clearly broken (e.g. azure embedder with no endpoint) and logs warnings
// for setups that work but are probably not what the operator intended:
// local hash embeddings written to a shared Qdrant collection, or an
// EMBEDDING_MODEL that looks like a chat model.
//
// Call it before constructing the embedder or the vector store so operators
// get a clear error at startup rather than a cryptic failure during the first
// embed call.
func ValidateForRAG(log *slog.Logger) error {
	backend := resolveBackend()
	qdrantHost := os.Getenv("QDRANT_HOST")

	switch backend {
	case BackendLocal:
		if qdrantHost != "" {
			log.Warn("embedder: local hash embeddings will be written to qdrant; "+
				"they carry no semantic meaning and cannot be mixed with model embeddings",
				slog.String("qdrant_host", qdrantHost),
				slog.String("hint", "unset EMBEDDING_FORCE_LOCAL or provide model credentials"),
			)
		}

	case "azure":
		if firstEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY") != "" &&
			firstEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT") == "" {
			return fmt.Errorf("embedder: no Azure endpoint found; set AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}

	case "bedrock":
		return fmt.Errorf("embedder: bedrock embedding is not supported; set EMBEDDING_PROVIDER to gemini, openai, azure, ollama or local")

	case "gemini", "openai", "ollama":

	default:
		return fmt.Errorf("embedder: unknown EMBEDDING_PROVIDER %q", backend)
	}

	// Record when the backend was inherited from MODEL_PROVIDER.
	if backend != BackendLocal && os.Getenv("EMBEDDING_PROVIDER") == "" && os.Getenv("MODEL_PROVIDER") != "" {
		log.Debug("embedder: EMBEDDING_PROVIDER not set, inheriting MODEL_PROVIDER",
			slog.String("backend", backend),
		)
	}

	// Warn if EMBEDDING_MODEL looks like a chat model.
	model := os.Getenv("EMBEDDING_MODEL")
	if model != "" && looksLikeChatModel(model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model; "+
			"this will likely produce poor or broken embeddings",
			slog.String("model", model),
			slog.String("hint", "use a dedicated embedding model e.g. gemini-embedding-001, text-embedding-3-small"),
		)
	}

	return nil
}
