package embedder

import (
	"context"
	"fmt"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// New validates cfg and constructs the embedder for its backend.
// Configuration problems are reported before any client is created.
func New(ctx context.Context, cfg *Config) (rag.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder: config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendOpenAI, BackendAzure:
		return NewOpenAIEmbedder(ctx, cfg)
	case BackendOllama:
		return NewOllamaEmbedder(cfg), nil
	default:
		// Unreachable after Validate.
		return nil, fmt.Errorf("embedder: unknown backend %q", cfg.Backend)
	}
}
