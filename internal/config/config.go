// Package config provides YAML-based configuration for pdfqa.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so a .env file or exported variables
// override anything in the YAML file.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. PDFQA_CONFIG environment variable
//  3. ~/.pdfqa/config.yaml
//  4. ./pdfqa.yaml
//
// If no file is found the system runs entirely from env vars. A file named
// explicitly (flag or PDFQA_CONFIG) must exist. Unknown keys are rejected so
// a misspelt setting fails loudly instead of being ignored.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Model configures the chat model that writes answers.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Chunking configures how document text is split.
	Chunking ChunkingConfig `yaml:"chunking"`

	// Retrieval configures how many chunks answer each question.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Index configures the vector store backend.
	Index IndexConfig `yaml:"index"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// ModelConfig holds LLM chat model settings.
type ModelConfig struct {
	// Provider selects the backend: openai, azure, ollama, gemini, ark.
	Provider string `yaml:"provider"`

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls response randomness. Answers default to 0.
	Temperature *float32 `yaml:"temperature"`

	// Ollama holds Ollama-specific settings.
	Ollama OllamaConfig `yaml:"ollama"`

	// OpenAI holds OpenAI-specific settings.
	OpenAI OpenAIConfig `yaml:"openai"`

	// Azure holds Azure OpenAI-specific settings.
	Azure AzureConfig `yaml:"azure"`

	// Gemini holds Google Gemini-specific settings.
	Gemini GeminiConfig `yaml:"gemini"`

	// Ark holds Volcengine Ark-specific settings.
	Ark ArkConfig `yaml:"ark"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host"`
	// Model is the Ollama model name.
	Model string `yaml:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the OpenAI model name.
	Model string `yaml:"model"`
	// BaseURL overrides the OpenAI endpoint.
	BaseURL string `yaml:"base_url"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string `yaml:"endpoint"`
	// Deployment is the Azure OpenAI deployment name.
	Deployment string `yaml:"deployment"`
	// APIVersion is the Azure OpenAI API version.
	APIVersion string `yaml:"api_version"`
}

// GeminiConfig holds Google Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the Gemini model name.
	Model string `yaml:"model"`
}

// ArkConfig holds Volcengine Ark provider settings.
type ArkConfig struct {
	// APIKey is the Ark API key. Prefer env var ARK_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the Ark endpoint or model ID.
	Model string `yaml:"model"`
	// BaseURL overrides the regional endpoint.
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (openai, azure, ollama).
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
}

// ChunkingConfig holds text splitting settings.
type ChunkingConfig struct {
	// Size is the maximum chunk length in characters.
	Size int `yaml:"size"`
	// Overlap is the number of characters shared by adjacent chunks. An
	// explicit 0 disables overlap.
	Overlap *int `yaml:"overlap"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	// TopK is the number of chunks passed to the model per question.
	TopK int `yaml:"top_k"`
}

// IndexConfig holds vector store settings.
type IndexConfig struct {
	// Backend selects sqlite, qdrant or redis.
	Backend string `yaml:"backend"`
	// Dir is the sqlite index directory.
	Dir string `yaml:"dir"`
	// Qdrant configures the Qdrant connection.
	Qdrant QdrantConfig `yaml:"qdrant"`
	// Redis configures the Redis connection.
	Redis RedisConfig `yaml:"redis"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// RedisConfig holds Redis vector store settings.
type RedisConfig struct {
	// Addr is the Redis host:port.
	Addr string `yaml:"addr"`
	// Password is the Redis password. Prefer env var REDIS_PASSWORD.
	Password string `yaml:"password"`
	// DB selects the logical database.
	DB int `yaml:"db"`
	// Index is the RediSearch index name.
	Index string `yaml:"index"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// yamlToEnv maps YAML config fields to their env var names. Fields left out
// of the file render as "" and are skipped; env vars always take precedence.
var yamlToEnv = []struct {
	envKey string
	value  func(*Config) string
}{
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return optFloat32(c.Model.Temperature) }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"OPENAI_BASE_URL", func(c *Config) string { return c.Model.OpenAI.BaseURL }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"ARK_API_KEY", func(c *Config) string { return c.Model.Ark.APIKey }},
	{"ARK_MODEL", func(c *Config) string { return c.Model.Ark.Model }},
	{"ARK_BASE_URL", func(c *Config) string { return c.Model.Ark.BaseURL }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Chunking.Size) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return optInt(c.Chunking.Overlap) }},
	{"RETRIEVAL_TOP_K", func(c *Config) string { return intStr(c.Retrieval.TopK) }},
	{"INDEX_BACKEND", func(c *Config) string { return c.Index.Backend }},
	{"INDEX_DIR", func(c *Config) string { return c.Index.Dir }},
	{"QDRANT_HOST", func(c *Config) string { return c.Index.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Index.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Index.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Index.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Index.Qdrant.TLS) }},
	{"REDIS_ADDR", func(c *Config) string { return c.Index.Redis.Addr }},
	{"REDIS_PASSWORD", func(c *Config) string { return c.Index.Redis.Password }},
	{"REDIS_DB", func(c *Config) string { return intStr(c.Index.Redis.DB) }},
	{"REDIS_INDEX", func(c *Config) string { return c.Index.Redis.Index }},
	{"PDFQA_HOST", func(c *Config) string { return c.Server.Host }},
	{"PDFQA_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load finds the YAML config file, parses it, and exports every value the
// file sets as an environment variable unless that variable is already set.
// It returns the path that was loaded, or "" when no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path, err := resolveConfigPath(explicitPath)
	if err != nil {
		return "", err
	}
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	cfg, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	applied, err := cfg.export(os.LookupEnv, os.Setenv)
	if err != nil {
		return "", err
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)
	return path, nil
}

// ReadFile parses the YAML config at path. An empty file is a valid, empty
// configuration.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// export sets each env var the file provides and the environment lacks.
// It returns the number of variables set.
func (c *Config) export(lookup func(string) (string, bool), setenv func(string, string) error) (int, error) {
	applied := 0
	for _, m := range yamlToEnv {
		val := m.value(c)
		if val == "" {
			continue
		}
		if cur, ok := lookup(m.envKey); ok && cur != "" {
			continue
		}
		if err := setenv(m.envKey, val); err != nil {
			return applied, fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}
	return applied, nil
}

// resolveConfigPath returns the config file to load. A path named by the
// flag or PDFQA_CONFIG must exist; the default locations are optional.
func resolveConfigPath(explicit string) (string, error) {
	for _, named := range []string{explicit, os.Getenv("PDFQA_CONFIG")} {
		if named == "" {
			continue
		}
		if _, err := os.Stat(named); err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		return named, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".pdfqa", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if _, err := os.Stat("pdfqa.yaml"); err == nil {
		return "pdfqa.yaml", nil
	}
	return "", nil
}

// intStr renders v, or "" for zero, which means "not set" for these fields.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// optInt renders a field where an explicit zero is meaningful.
func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// optFloat32 renders a float field in the shortest form that round-trips.
func optFloat32(v *float32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*v), 'f', -1, 32)
}

// boolStr renders true as "true" and false as "" (not set).
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
