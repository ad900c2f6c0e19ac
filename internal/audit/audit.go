// Package audit records one structured log line per CLI command: the command
// name, the config file in effect and the settings that decide where a
// document goes (chat backend, embedding backend, index backend).
//
// Credentials are logged as "set" or "unset", never their values.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// auditEntry is an environment variable included in the audit record.
type auditEntry struct {
	// key is the environment variable name.
	key string
	// secret redacts the value to presence/absence.
	secret bool
}

// auditKeys is the ordered list of variables in every audit record.
var auditKeys = []auditEntry{
	{"MODEL_PROVIDER", false},
	{"OPENAI_API_KEY", true},
	{"OPENAI_MODEL", false},
	{"OPENAI_BASE_URL", false},
	{"AZURE_OPENAI_API_KEY", true},
	{"AZURE_OPENAI_ENDPOINT", false},
	{"AZURE_OPENAI_DEPLOYMENT", false},
	{"OLLAMA_HOST", false},
	{"OLLAMA_MODEL", false},
	{"GOOGLE_API_KEY", true},
	{"GEMINI_MODEL", false},
	{"ARK_API_KEY", true},
	{"ARK_MODEL", false},
	{"EMBEDDING_PROVIDER", false},
	{"EMBEDDING_MODEL", false},
	{"EMBEDDING_API_KEY", true},
	{"CHUNK_SIZE", false},
	{"CHUNK_OVERLAP", false},
	{"RETRIEVAL_TOP_K", false},
	{"INDEX_BACKEND", false},
	{"INDEX_DIR", false},
	{"QDRANT_HOST", false},
	{"QDRANT_API_KEY", true},
	{"REDIS_ADDR", false},
	{"REDIS_PASSWORD", true},
	{"LOG_LEVEL", false},
	{"LANGFUSE_PUBLIC_KEY", true},
	{"LANGFUSE_SECRET_KEY", true},
}

// secretEnvKeys is the set of redacted keys, derived from auditKeys.
var secretEnvKeys = func() map[string]bool {
	m := make(map[string]bool)
	for _, e := range auditKeys {
		if e.secret {
			m[e.key] = true
		}
	}
	return m
}()

// LogCommandStart emits the audit record for command using the process
// environment.
func LogCommandStart(ctx context.Context, log *slog.Logger, command, configPath string) {
	log.LogAttrs(ctx, slog.LevelInfo, "audit: command start", commandAttrs(command, configPath, os.Getenv)...)
}

// commandAttrs builds the audit attributes, reading variables via getenv.
func commandAttrs(command, configPath string, getenv func(string) string) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(auditKeys)+2)
	attrs = append(attrs,
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	)
	for _, e := range auditKeys {
		attrs = append(attrs, slog.String(e.key, SanitiseKey(e.key, getenv(e.key))))
	}
	return attrs
}

// SanitiseKey returns "set" or "unset" for secret keys and the value (or
// "unset") for everything else.
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	return valOrUnset(value)
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath returns the config path with the home directory
// shortened to "~", or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
