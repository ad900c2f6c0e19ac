package server

import (
	"context"
	"fmt"

	"github.com/54b3r/pdfqa-go/internal/provider"
)

// LLMPinger probes a chat backend through its zero-cost health endpoint.
// Backends without one are not probed; see provider.NewHealthCheck.
type LLMPinger struct {
	// healthCheck is the backend's HTTP probe.
	healthCheck provider.HealthCheckConfig
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewLLMPinger returns a Pinger for cfg's chat backend, or nil when the
// backend exposes no health endpoint.
func NewLLMPinger(cfg *provider.Config) *LLMPinger {
	hc := provider.NewHealthCheck(cfg)
	if hc == nil {
		return nil
	}
	return &LLMPinger{healthCheck: hc, name: "llm:" + string(cfg.Backend)}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping runs the backend's health check.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if err := p.healthCheck.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%s health check failed: %w", p.name, err)
	}
	return nil
}
