// Package embedder provides rag.Embedder implementations. OpenAI and Azure
// OpenAI go through the eino-ext OpenAI embedding component; Ollama is spoken
// to over plain HTTP.
package embedder

import (
	"fmt"
	"time"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// Backend enumerates the supported embedding services.
type Backend string

const (
	// BackendOpenAI selects the OpenAI embeddings API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI embeddings.
	BackendAzure Backend = "azure"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
)

// Default embedding models and their output sizes.
const (
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text"

	defaultOpenAIDimensions = 1536
	defaultOllamaDimensions = 768

	defaultOllamaHost = "http://localhost:11434"
	defaultTimeout    = 60 * time.Second
)

// Config holds everything needed to construct an embedder. It is resolved
// once by the config package; nothing here reads the environment.
type Config struct {
	// Backend selects the embedding service.
	Backend Backend
	// Model is the embedding model name.
	Model string
	// APIKey is the credential for openai and azure.
	APIKey string
	// KeyEnv names the environment variable APIKey came from. It is used in
	// diagnostics when the key is missing.
	KeyEnv string
	// BaseURL overrides the service endpoint. Required for azure.
	BaseURL string
	// APIVersion is the Azure OpenAI API version.
	APIVersion string
	// Dimensions requests a specific vector size. Zero uses the model default.
	Dimensions int
	// Timeout bounds each embedding request. Zero selects 60s.
	Timeout time.Duration
}

// Validate checks that the settings required by the selected backend are
// present. It never performs network calls.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOpenAI:
		if c.APIKey == "" {
			return rag.MissingSettingError(c.keyEnv("OPENAI_API_KEY"))
		}
	case BackendAzure:
		if c.APIKey == "" {
			return rag.MissingSettingError(c.keyEnv("AZURE_OPENAI_API_KEY"))
		}
		if c.BaseURL == "" {
			return rag.MissingSettingError("AZURE_OPENAI_ENDPOINT")
		}
	case BackendOllama:
	default:
		return rag.ConfigError("EMBEDDING_PROVIDER",
			fmt.Sprintf("embedder: unknown EMBEDDING_PROVIDER %q, valid values: openai, azure, ollama", c.Backend))
	}
	if c.Model == "" {
		return rag.MissingSettingError("EMBEDDING_MODEL")
	}
	return nil
}

// VectorSize returns the length of the vectors this configuration produces.
// Vector stores that fix a dimension at creation time use it.
func (c *Config) VectorSize() int {
	if c.Dimensions > 0 {
		return c.Dimensions
	}
	return DefaultDimensions(c.Backend)
}

// keyEnv returns KeyEnv or fallback when unset.
func (c *Config) keyEnv(fallback string) string {
	if c.KeyEnv != "" {
		return c.KeyEnv
	}
	return fallback
}

// DefaultModel returns the default embedding model for backend.
func DefaultModel(backend Backend) string {
	if backend == BackendOllama {
		return DefaultOllamaModel
	}
	return DefaultOpenAIModel
}

// DefaultDimensions returns the output size of the default model for backend.
func DefaultDimensions(backend Backend) int {
	if backend == BackendOllama {
		return defaultOllamaDimensions
	}
	return defaultOpenAIDimensions
}
