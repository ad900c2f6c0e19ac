// Package provider selects and constructs the chat model that composes answers.
// Supported backends: OpenAI, Azure OpenAI, Ollama, Google Gemini and
// Volcengine Ark, all through eino-ext model components.
package provider

import (
	"context"
	"fmt"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendArk selects Volcengine Ark.
	BackendArk Backend = "ark"
)

// Defaults applied by the config package when a setting is absent.
const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultOllamaModel     = "llama3"
	DefaultOllamaHost      = "http://localhost:11434"
	DefaultGeminiModel     = "gemini-2.0-flash"
	DefaultAzureAPIVersion = "2024-02-01"
	DefaultMaxTokens       = 1024
	DefaultTemperature     = 0
)

// ProviderOllama holds Ollama connection settings.
type ProviderOllama struct {
	// Host is the Ollama base URL (OLLAMA_HOST).
	Host string
	// Model is the chat model name (OLLAMA_MODEL).
	Model string
}

// ProviderOpenAI holds OpenAI settings.
type ProviderOpenAI struct {
	// APIKey is the credential (OPENAI_API_KEY).
	APIKey string
	// Model is the completion model (OPENAI_MODEL).
	Model string
	// BaseURL overrides the API endpoint (OPENAI_BASE_URL).
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	// APIKey is the credential (AZURE_OPENAI_API_KEY).
	APIKey string
	// Endpoint is the resource URL (AZURE_OPENAI_ENDPOINT).
	Endpoint string
	// Deployment is the chat deployment name (AZURE_OPENAI_DEPLOYMENT).
	Deployment string
	// APIVersion is the REST API version (AZURE_OPENAI_API_VERSION).
	APIVersion string
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey is the credential (GOOGLE_API_KEY).
	APIKey string
	// Model is the model name (GEMINI_MODEL).
	Model string
}

// ProviderArk holds Volcengine Ark settings.
type ProviderArk struct {
	// APIKey is the credential (ARK_API_KEY).
	APIKey string
	// Model is the endpoint or model ID (ARK_MODEL).
	Model string
	// BaseURL overrides the regional endpoint (ARK_BASE_URL).
	BaseURL string
}

// SharedTuning holds generation settings common to every backend.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness. Answers default to 0.
	Temperature float32
}

// Config holds all provider-level configuration. Only the block matching
// Backend is consulted.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Gemini      ProviderGemini
	Ark         ProviderArk
	Tuning      SharedTuning
}

// ModelName returns the model or deployment name of the selected backend.
func (c *Config) ModelName() string {
	switch c.Backend {
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAzure:
		return c.AzureOpenAI.Deployment
	case BackendOllama:
		return c.Ollama.Model
	case BackendGemini:
		return c.Gemini.Model
	case BackendArk:
		return c.Ark.Model
	default:
		return ""
	}
}

// String returns "<backend>/<model>" for logs.
func (c *Config) String() string {
	return fmt.Sprintf("%s/%s", c.Backend, c.ModelName())
}

// HealthCheckConfig is implemented by zero-cost readiness probes for a backend.
type HealthCheckConfig interface {
	// HealthCheck returns nil when the backend is reachable.
	HealthCheck(ctx context.Context) error
}
