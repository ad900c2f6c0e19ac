package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
)

// New constructs a chat model from an explicit Config, delegating to the
// appropriate backend factory function. It validates the config first so
// callers get a clear error at startup rather than on the first request.
func New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider: config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		m   model.BaseChatModel
		err error
	)
	switch cfg.Backend {
	case BackendOllama:
		m, err = newOllama(ctx, cfg)
	case BackendOpenAI:
		m, err = newOpenAI(ctx, cfg)
	case BackendAzure:
		m, err = newAzure(ctx, cfg)
	case BackendGemini:
		m, err = newGemini(ctx, cfg)
	case BackendArk:
		m, err = newArk(ctx, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("provider: create %s model: %w", cfg.Backend, err)
	}
	return m, nil
}

// NewHealthCheck returns a zero-cost readiness probe for backends that expose
// one, or nil.
func NewHealthCheck(cfg *Config) HealthCheckConfig {
	switch cfg.Backend {
	case BackendOllama:
		return &httpCheck{url: trimSlash(cfg.Ollama.Host) + "/api/version"}
	case BackendOpenAI:
		base := cfg.OpenAI.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		return &httpCheck{url: trimSlash(base) + "/models", bearer: cfg.OpenAI.APIKey}
	default:
		return nil
	}
}
