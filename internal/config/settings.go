package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/54b3r/pdfqa-go/internal/budget"
	"github.com/54b3r/pdfqa-go/internal/embedder"
	"github.com/54b3r/pdfqa-go/internal/provider"
	"github.com/54b3r/pdfqa-go/internal/rag"
	"github.com/54b3r/pdfqa-go/internal/store"
	"github.com/54b3r/pdfqa-go/internal/textsplit"
	"github.com/54b3r/pdfqa-go/internal/tracing"
)

// Server defaults.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8080
)

// Settings is every runtime setting resolved into explicit values. It is
// built once at startup; nothing below cmd/ reads the environment again.
type Settings struct {
	// Provider configures the chat model.
	Provider provider.Config
	// Embedder configures the embedding service.
	Embedder embedder.Config
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int
	// ChunkOverlap is the overlap between adjacent chunks in runes.
	ChunkOverlap int
	// TopK is the number of chunks retrieved per question.
	TopK int
	// MaxPromptTokens is the prompt size above which synthesis warns.
	MaxPromptTokens int
	// Index selects and configures the vector store.
	Index store.Config
	// Tracing configures optional Langfuse tracing.
	Tracing tracing.Config
	// Host and Port are the HTTP bind address for `pdfqa serve`.
	Host string
	Port int
}

// FromEnv resolves Settings from the process environment. Malformed numbers
// are reported as configuration errors naming the variable. Missing
// credentials are not checked here; see Validate.
func FromEnv() (*Settings, error) {
	return FromLookup(os.Getenv)
}

// FromLookup resolves Settings using getenv in place of os.Getenv.
func FromLookup(getenv func(string) string) (*Settings, error) {
	e := &env{get: getenv}

	s := &Settings{
		Provider: provider.Config{
			Backend: provider.Backend(strings.ToLower(e.str("MODEL_PROVIDER", string(provider.BackendOpenAI)))),
			Ollama: provider.ProviderOllama{
				Host:  e.str("OLLAMA_HOST", provider.DefaultOllamaHost),
				Model: e.str("OLLAMA_MODEL", provider.DefaultOllamaModel),
			},
			OpenAI: provider.ProviderOpenAI{
				APIKey:  e.str("OPENAI_API_KEY", ""),
				Model:   e.str("OPENAI_MODEL", provider.DefaultOpenAIModel),
				BaseURL: e.str("OPENAI_BASE_URL", ""),
			},
			AzureOpenAI: provider.ProviderAzureOpenAI{
				APIKey:     e.str("AZURE_OPENAI_API_KEY", ""),
				Endpoint:   e.str("AZURE_OPENAI_ENDPOINT", ""),
				Deployment: e.str("AZURE_OPENAI_DEPLOYMENT", ""),
				APIVersion: e.str("AZURE_OPENAI_API_VERSION", provider.DefaultAzureAPIVersion),
			},
			Gemini: provider.ProviderGemini{
				APIKey: e.str("GOOGLE_API_KEY", ""),
				Model:  e.str("GEMINI_MODEL", provider.DefaultGeminiModel),
			},
			Ark: provider.ProviderArk{
				APIKey:  e.str("ARK_API_KEY", ""),
				Model:   e.str("ARK_MODEL", ""),
				BaseURL: e.str("ARK_BASE_URL", ""),
			},
			Tuning: provider.SharedTuning{
				MaxTokens:   e.int("MODEL_MAX_TOKENS", provider.DefaultMaxTokens),
				Temperature: e.float32("MODEL_TEMPERATURE", provider.DefaultTemperature),
			},
		},
		ChunkSize:       e.int("CHUNK_SIZE", textsplit.DefaultChunkSize),
		ChunkOverlap:    e.int("CHUNK_OVERLAP", textsplit.DefaultChunkOverlap),
		TopK:            e.int("RETRIEVAL_TOP_K", rag.DefaultTopK),
		MaxPromptTokens: e.int("MAX_PROMPT_TOKENS", budget.DefaultMaxPromptTokens),
		Index: store.Config{
			Backend: store.Backend(strings.ToLower(e.str("INDEX_BACKEND", string(store.BackendSQLite)))),
			Dir:     e.str("INDEX_DIR", store.DefaultDir),
			Qdrant: store.QdrantConfig{
				Host:       e.str("QDRANT_HOST", "localhost"),
				Port:       e.int("QDRANT_PORT", 6334),
				Collection: e.str("QDRANT_COLLECTION", "pdfqa"),
				APIKey:     e.str("QDRANT_API_KEY", ""),
				UseTLS:     e.bool("QDRANT_TLS"),
			},
			Redis: store.RedisConfig{
				Addr:      e.str("REDIS_ADDR", "localhost:6379"),
				Password:  e.str("REDIS_PASSWORD", ""),
				DB:        e.int("REDIS_DB", 0),
				IndexName: e.str("REDIS_INDEX", "pdfqa"),
			},
		},
		Tracing: tracing.Config{
			Host:      e.str("LANGFUSE_HOST", tracing.DefaultHost),
			PublicKey: e.str("LANGFUSE_PUBLIC_KEY", ""),
			SecretKey: e.str("LANGFUSE_SECRET_KEY", ""),
		},
		Host: e.str("PDFQA_HOST", DefaultHost),
		Port: e.int("PDFQA_PORT", DefaultPort),
	}
	s.Embedder = embedderConfig(e, s.Provider.Backend)

	if e.err != nil {
		return nil, e.err
	}
	return s, nil
}

// embedderConfig resolves the embedding settings. The embedding backend
// follows MODEL_PROVIDER unless EMBEDDING_PROVIDER is set; chat-only
// backends fall back to OpenAI embeddings.
func embedderConfig(e *env, chat provider.Backend) embedder.Config {
	def := embedder.BackendOpenAI
	switch chat {
	case provider.BackendAzure:
		def = embedder.BackendAzure
	case provider.BackendOllama:
		def = embedder.BackendOllama
	}
	backend := embedder.Backend(strings.ToLower(e.str("EMBEDDING_PROVIDER", string(def))))

	cfg := embedder.Config{
		Backend:    backend,
		Model:      e.str("EMBEDDING_MODEL", embedder.DefaultModel(backend)),
		Dimensions: e.int("EMBEDDING_DIMENSIONS", 0),
		BaseURL:    e.str("EMBEDDING_ENDPOINT", ""),
	}

	switch backend {
	case embedder.BackendOpenAI:
		cfg.APIKey, cfg.KeyEnv = e.firstOf("EMBEDDING_API_KEY", "OPENAI_API_KEY")
		if cfg.BaseURL == "" {
			cfg.BaseURL = e.str("OPENAI_BASE_URL", "")
		}
	case embedder.BackendAzure:
		cfg.APIKey, cfg.KeyEnv = e.firstOf("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY")
		if cfg.BaseURL == "" {
			cfg.BaseURL = e.str("AZURE_OPENAI_ENDPOINT", "")
		}
		cfg.APIVersion = e.str("AZURE_OPENAI_API_VERSION", provider.DefaultAzureAPIVersion)
	case embedder.BackendOllama:
		if cfg.BaseURL == "" {
			cfg.BaseURL = e.str("OLLAMA_HOST", provider.DefaultOllamaHost)
		}
	}
	return cfg
}

// Validate checks every setting that must hold before any network call:
// chat and embedding credentials, chunking bounds, and the index backend.
func (s *Settings) Validate() error {
	if err := s.Provider.Validate(); err != nil {
		return err
	}
	if err := s.Embedder.Validate(); err != nil {
		return err
	}
	if _, err := textsplit.New(s.ChunkSize, s.ChunkOverlap); err != nil {
		return err
	}
	switch s.Index.Backend {
	case store.BackendSQLite, store.BackendQdrant, store.BackendRedis:
	default:
		return rag.ConfigError("INDEX_BACKEND",
			fmt.Sprintf("config: unknown INDEX_BACKEND %q, valid values: sqlite, qdrant, redis", s.Index.Backend))
	}
	return nil
}

// env reads variables and remembers the first parse failure.
type env struct {
	get func(string) string
	err error
}

func (e *env) str(key, fallback string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return fallback
}

// firstOf returns the first non-empty variable among keys and its name. When
// all are empty it returns the last key, which names the variable to set.
func (e *env) firstOf(keys ...string) (value, key string) {
	for _, k := range keys {
		if v := e.str(k, ""); v != "" {
			return v, k
		}
	}
	return "", keys[len(keys)-1]
}

func (e *env) int(key string, fallback int) int {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, fmt.Sprintf("%s must be an integer, got %q", key, v))
		return fallback
	}
	return n
}

func (e *env) float32(key string, fallback float32) float32 {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		e.fail(key, fmt.Sprintf("%s must be a number, got %q", key, v))
		return fallback
	}
	return float32(f)
}

func (e *env) bool(key string) bool {
	v := e.str(key, "")
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, fmt.Sprintf("%s must be true or false, got %q", key, v))
		return false
	}
	return b
}

func (e *env) fail(key, msg string) {
	if e.err == nil {
		e.err = rag.ConfigError(key, msg)
	}
}
