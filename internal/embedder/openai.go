package embedder

import (
	"context"
	"fmt"

	openaiemb "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

// OpenAIEmbedder implements rag.Embedder on top of the eino OpenAI embedding
// component. The same type serves Azure OpenAI. It is safe for concurrent use.
type OpenAIEmbedder struct {
	// inner is the eino embedding component.
	inner embedding.Embedder
	// model is recorded for error messages.
	model string
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder for an openai or azure Config.
func NewOpenAIEmbedder(ctx context.Context, cfg *Config) (*OpenAIEmbedder, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ecfg := &openaiemb.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: timeout,
	}
	if cfg.Backend == BackendAzure {
		ecfg.ByAzure = true
		ecfg.APIVersion = cfg.APIVersion
	}
	if cfg.Dimensions > 0 {
		dims := cfg.Dimensions
		ecfg.Dimensions = &dims
	}

	inner, err := openaiemb.NewEmbedder(ctx, ecfg)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: create client: %w", err)
	}
	return &OpenAIEmbedder{inner: inner, model: cfg.Model}, nil
}

// Embed converts a batch of texts into embeddings, parallel to texts.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vecs, err := e.inner.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: model %s: %w", e.model, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("openai embedder: expected %d embeddings, got %d", len(texts), len(vecs))
	}

	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		f := make([]float32, len(v))
		for j, x := range v {
			f[j] = float32(x)
		}
		out[i] = f
	}
	return out, nil
}
