package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/54b3r/askpdf-go/internal/rag"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "gemini/valid",
			cfg:  Config{Backend: BackendGemini, Gemini: ProviderGemini{APIKey: "AIza-test", Model: "gemini-2.5-flash"}},
		},
		{
			name:    "gemini/missing api key",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{Model: "gemini-2.5-flash"}},
			wantErr: "GOOGLE_API_KEY",
		},
		{
			name:    "gemini/missing model",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{APIKey: "AIza-test"}},
			wantErr: "GEMINI_MODEL",
		},
		{
			name: "openai/valid",
			cfg:  Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o-mini"}},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{Model: "gpt-4o-mini"}},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name: "azure/valid",
			cfg: Config{Backend: BackendAzure, AzureOpenAI: ProviderAzureOpenAI{
				APIKey: "key", Endpoint: "https://my.openai.azure.com", Deployment: "gpt-4o",
			}},
		},
		{
			name: "azure/missing endpoint and deployment",
			cfg:  Config{Backend: BackendAzure, AzureOpenAI: ProviderAzureOpenAI{APIKey: "key"}},
			// Both are reported in one error.
			wantErr: "AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT",
		},
		{
			name: "ollama/valid",
			cfg:  Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434", Model: "llama3"}},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434"}},
			wantErr: "OLLAMA_MODEL",
		},
		{
			name:    "bedrock/missing model id",
			cfg:     Config{Backend: BackendBedrock, Bedrock: ProviderBedrock{AWSRegion: "us-east-1"}},
			wantErr: "BEDROCK_MODEL_ID",
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "watsonx"},
			wantErr: "unknown backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tc.wantErr)
			}
			if !errors.Is(err, rag.ErrInvalidConfiguration) {
				t.Errorf("Validate() error does not wrap ErrInvalidConfiguration: %v", err)
			}
		})
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), &Config{Backend: BackendGemini})
	if !errors.Is(err, rag.ErrInvalidConfiguration) {
		t.Fatalf("New() error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("MODEL_MAX_TOKENS", "256")
	t.Setenv("MODEL_TEMPERATURE", "not-a-number")

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendGemini {
		t.Errorf("Backend = %q, want gemini", cfg.Backend)
	}
	if cfg.Gemini.APIKey != "g-key" {
		t.Errorf("Gemini.APIKey = %q, want GOOGLE_API_KEY fallback", cfg.Gemini.APIKey)
	}
	if cfg.Model() != defaultGeminiModel {
		t.Errorf("Model() = %q, want %q", cfg.Model(), defaultGeminiModel)
	}
	if cfg.Tuning.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want 256", cfg.Tuning.MaxTokens)
	}
	if cfg.Tuning.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want default 0.2", cfg.Tuning.Temperature)
	}

	t.Setenv("GEMINI_API_KEY", "primary")
	if got := ConfigFromEnv().Gemini.APIKey; got != "primary" {
		t.Errorf("GEMINI_API_KEY should win over GOOGLE_API_KEY, got %q", got)
	}
}

func TestHealthCheckFor(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if gotKey != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ok := HealthCheckFor(&Config{Backend: BackendGemini, Gemini: ProviderGemini{APIKey: "k", Model: "gemini-2.5-flash", BaseURL: srv.URL}})
	if err := ok.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() = %v", err)
	}
	if gotPath != "/v1beta/models/gemini-2.5-flash" {
		t.Errorf("health path = %q", gotPath)
	}

	bad := HealthCheckFor(&Config{Backend: BackendGemini, Gemini: ProviderGemini{APIKey: "wrong", Model: "m", BaseURL: srv.URL}})
	if err := bad.HealthCheck(context.Background()); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("HealthCheck() = %v, want status 401 error", err)
	}

	if hc := HealthCheckFor(&Config{Backend: BackendBedrock}); hc != nil {
		t.Error("bedrock should have no token-free health check")
	}
}

func TestIsAzureReasoningModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		deployment string
		want       bool
	}{
		{"o1", true},
		{"o1-preview", true},
		{"o3-mini", true},
		{"o4-mini", true},
		{"O3-Mini", true},
		{"codex-mini", true},
		{"gpt-5.2-codex", false},
		{"gpt-4o", false},
		{"gpt-4.1", false},
		{"o10-custom", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.deployment, func(t *testing.T) {
			t.Parallel()
			if got := isAzureReasoningModel(tc.deployment); got != tc.want {
				t.Errorf("isAzureReasoningModel(%q) = %v, want %v", tc.deployment, got, tc.want)
			}
		})
	}
}
