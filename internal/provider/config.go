package provider

import (
	"fmt"
	"strings"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// Validate checks that the settings required by the selected backend are
// present. Each failure names the environment variable to set.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama:
		if c.Ollama.Model == "" {
			return rag.MissingSettingError("OLLAMA_MODEL")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return rag.MissingSettingError("OPENAI_API_KEY")
		}
		if c.OpenAI.Model == "" {
			return rag.MissingSettingError("OPENAI_MODEL")
		}
	case BackendAzure:
		if c.AzureOpenAI.APIKey == "" {
			return rag.MissingSettingError("AZURE_OPENAI_API_KEY")
		}
		if c.AzureOpenAI.Endpoint == "" {
			return rag.MissingSettingError("AZURE_OPENAI_ENDPOINT")
		}
		if c.AzureOpenAI.Deployment == "" {
			return rag.MissingSettingError("AZURE_OPENAI_DEPLOYMENT")
		}
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return rag.MissingSettingError("GOOGLE_API_KEY")
		}
		if c.Gemini.Model == "" {
			return rag.MissingSettingError("GEMINI_MODEL")
		}
	case BackendArk:
		if c.Ark.APIKey == "" {
			return rag.MissingSettingError("ARK_API_KEY")
		}
		if c.Ark.Model == "" {
			return rag.MissingSettingError("ARK_MODEL")
		}
	default:
		return rag.ConfigError("MODEL_PROVIDER",
			fmt.Sprintf("provider: unknown MODEL_PROVIDER %q, valid values: openai, azure, ollama, gemini, ark", c.Backend))
	}
	if c.Tuning.MaxTokens < 0 {
		return rag.ConfigError("MODEL_MAX_TOKENS", "provider: MODEL_MAX_TOKENS must not be negative")
	}
	return nil
}

// isAzureReasoningModel reports whether deployment names an o-series or codex
// model. Those reject temperature and max_tokens.
func isAzureReasoningModel(deployment string) bool {
	d := strings.ToLower(deployment)
	for _, prefix := range []string{"o1", "o3", "o4", "codex"} {
		if strings.HasPrefix(d, prefix) {
			return true
		}
	}
	return false
}
