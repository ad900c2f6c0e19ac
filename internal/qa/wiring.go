package qa

import (
	"context"
	"fmt"

	"github.com/54b3r/pdfqa-go/internal/config"
	"github.com/54b3r/pdfqa-go/internal/embedder"
	"github.com/54b3r/pdfqa-go/internal/extract"
	"github.com/54b3r/pdfqa-go/internal/provider"
	"github.com/54b3r/pdfqa-go/internal/rag"
)

// SettingsFrom narrows the process-wide settings to what a Pipeline needs.
func SettingsFrom(cfg *config.Settings) Settings {
	return Settings{
		Provider:        cfg.Provider,
		Embedder:        cfg.Embedder,
		ChunkSize:       cfg.ChunkSize,
		ChunkOverlap:    cfg.ChunkOverlap,
		TopK:            cfg.TopK,
		MaxPromptTokens: cfg.MaxPromptTokens,
	}
}

// NewFromConfig builds a production Pipeline over store. Credentials are
// validated before any client is constructed. progress may be nil.
func NewFromConfig(ctx context.Context, cfg *config.Settings, store rag.VectorStore, progress func(string)) (*Pipeline, error) {
	settings := SettingsFrom(cfg)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("qa: store must not be nil")
	}

	chat, err := provider.New(ctx, &settings.Provider)
	if err != nil {
		return nil, fmt.Errorf("qa: %w", err)
	}
	emb, err := embedder.New(ctx, &settings.Embedder)
	if err != nil {
		return nil, fmt.Errorf("qa: %w", err)
	}

	return New(settings, Components{
		Extractor: extract.New(),
		Embedder:  emb,
		Store:     store,
		ChatModel: chat,
		Progress:  progress,
	})
}
