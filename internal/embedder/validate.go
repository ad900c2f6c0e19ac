package embedder

import (
	"log/slog"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat or
// completion models, which are not suitable for embedding.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"mistral",
	"mixtral",
	"gemma",
	"gemini",
	"phi3",
	"claude",
	"deepseek",
	"qwen",
	"doubao",
}

// looksLikeChatModel reports whether model resembles a known chat model
// rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	if strings.Contains(lower, "embed") {
		return false
	}
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Preflight logs a warning when cfg.Model looks like a chat model. Such a
// model either fails on the first embed call or produces useless vectors,
// and the warning names the likely cause up front. It returns true when the
// warning was emitted.
func Preflight(log *slog.Logger, cfg *Config) bool {
	if !looksLikeChatModel(cfg.Model) {
		return false
	}
	log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model",
		slog.String("backend", string(cfg.Backend)),
		slog.String("model", cfg.Model),
		slog.String("hint", "use a dedicated embedding model e.g. text-embedding-3-small, nomic-embed-text"),
	)
	return true
}
