package server

import (
	"context"
	"fmt"

	"github.com/54b3r/askpdf-go/internal/provider"
)

// LLMPinger checks the answer-generation backend through its token-free
// health endpoint.
type LLMPinger struct {
	check provider.HealthChecker
	// name identifies the backend in readiness responses (e.g. "gemini").
	name string
}

// NewLLMPinger constructs an LLMPinger. It returns nil when hc is nil so the
// caller can skip backends without a health check.
func NewLLMPinger(hc provider.HealthChecker, name string) *LLMPinger {
	if hc == nil {
		return nil
	}
	return &LLMPinger{check: hc, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return "llm:" + p.name }

// Ping calls the backend health endpoint.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if err := p.check.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// pingable is satisfied by *rag.QdrantStore and *store.SQLiteStore.
type pingable interface {
	Ping(ctx context.Context) error
}

// DependencyPinger adapts any component with a Ping method to Pinger.
type DependencyPinger struct {
	name string
	dep  pingable
}

// NewDependencyPinger labels dep as name in readiness responses.
func NewDependencyPinger(name string, dep pingable) *DependencyPinger {
	return &DependencyPinger{name: name, dep: dep}
}

// Name returns the dependency label used in readiness responses.
func (p *DependencyPinger) Name() string { return p.name }

// Ping delegates to the dependency.
func (p *DependencyPinger) Ping(ctx context.Context) error {
	return p.dep.Ping(ctx)
}
