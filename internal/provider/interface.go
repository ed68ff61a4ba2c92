// Package provider selects and constructs the chat model that generates
// answers. Supported backends: Google Gemini (default), OpenAI, Azure OpenAI,
// Ollama and AWS Bedrock (through the ark runtime).
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/54b3r/askpdf-go/internal/rag"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendBedrock selects AWS Bedrock.
	BackendBedrock Backend = "bedrock"
)

// ProviderGemini holds Gemini credentials and model selection.
type ProviderGemini struct {
	APIKey string
	Model  string
	// BaseURL overrides the AI Studio endpoint (tests, proxies).
	BaseURL string
}

// ProviderOpenAI holds OpenAI credentials and model selection.
type ProviderOpenAI struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI credentials and deployment.
type ProviderAzureOpenAI struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// ProviderOllama holds the Ollama host and model.
type ProviderOllama struct {
	Host  string
	Model string
}

// ProviderBedrock holds the Bedrock region and model id.
type ProviderBedrock struct {
	AWSRegion string
	ModelID   string
	// Endpoint is the ark-compatible runtime URL.
	Endpoint string
	APIKey   string
}

// SharedTuning holds generation parameters common to every backend.
type SharedTuning struct {
	// MaxTokens caps the number of tokens generated per answer.
	MaxTokens int
	// Temperature controls response randomness (0.0-1.0).
	Temperature float32
}

// Config holds the provider configuration resolved from environment
// variables or supplied explicitly by the caller.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	Gemini      ProviderGemini
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ollama      ProviderOllama
	Bedrock     ProviderBedrock
	Tuning      SharedTuning
}

// Model returns the model or deployment name of the selected backend.
func (c *Config) Model() string {
	switch c.Backend {
	case BackendGemini:
		return c.Gemini.Model
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAzure:
		return c.AzureOpenAI.Deployment
	case BackendOllama:
		return c.Ollama.Model
	case BackendBedrock:
		return c.Bedrock.ModelID
	}
	return ""
}

// Validate reports missing settings for the selected backend, naming the
// environment variable that supplies each one.
func (c *Config) Validate() error {
	var missing []string
	need := func(v, env string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, env)
		}
	}

	switch c.Backend {
	case BackendGemini:
		need(c.Gemini.APIKey, "GEMINI_API_KEY or GOOGLE_API_KEY")
		need(c.Gemini.Model, "GEMINI_MODEL")
	case BackendOpenAI:
		need(c.OpenAI.APIKey, "OPENAI_API_KEY")
		need(c.OpenAI.Model, "OPENAI_MODEL")
	case BackendAzure:
		need(c.AzureOpenAI.APIKey, "AZURE_OPENAI_API_KEY")
		need(c.AzureOpenAI.Endpoint, "AZURE_OPENAI_ENDPOINT")
		need(c.AzureOpenAI.Deployment, "AZURE_OPENAI_DEPLOYMENT")
	case BackendOllama:
		need(c.Ollama.Host, "OLLAMA_HOST")
		need(c.Ollama.Model, "OLLAMA_MODEL")
	case BackendBedrock:
		need(c.Bedrock.AWSRegion, "AWS_REGION")
		need(c.Bedrock.ModelID, "BEDROCK_MODEL_ID")
	default:
		return fmt.Errorf("provider: %w: unknown backend %q, valid values: gemini, openai, azure, ollama, bedrock",
			rag.ErrInvalidConfiguration, c.Backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("provider: %w: %s backend requires %s",
			rag.ErrInvalidConfiguration, c.Backend, strings.Join(missing, ", "))
	}
	return nil
}

// HealthChecker checks a backend without spending tokens.
// Implementations must be safe to call from multiple goroutines.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// isAzureReasoningModel reports whether an Azure deployment name belongs to
// the o-series or codex family, which reject temperature and max_tokens.
func isAzureReasoningModel(deployment string) bool {
	d := strings.ToLower(deployment)
	for _, p := range []string{"o1", "o3", "o4", "codex"} {
		if d == p || strings.HasPrefix(d, p+"-") {
			return true
		}
	}
	return false
}
