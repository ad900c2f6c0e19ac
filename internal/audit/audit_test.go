package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitiseKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key, value, want string
	}{
		{"OPENAI_API_KEY", "sk-abc123", "set"},
		{"OPENAI_API_KEY", "", "unset"},
		{"REDIS_PASSWORD", "hunter2", "set"},
		{"MODEL_PROVIDER", "ollama", "ollama"},
		{"MODEL_PROVIDER", "", "unset"},
		{"INDEX_BACKEND", "qdrant", "qdrant"},
	}
	for _, tc := range cases {
		if got := SanitiseKey(tc.key, tc.value); got != tc.want {
			t.Errorf("SanitiseKey(%q, %q) = %q, want %q", tc.key, tc.value, got, tc.want)
		}
	}
}

func TestCommandAttrs_NeverLogsSecrets(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"MODEL_PROVIDER":      "openai",
		"OPENAI_API_KEY":      "sk-very-secret",
		"LANGFUSE_SECRET_KEY": "lf-secret",
		"INDEX_BACKEND":       "sqlite",
	}
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	log.LogAttrs(context.Background(), slog.LevelInfo, "audit: command start",
		commandAttrs("ask", "", func(k string) string { return env[k] })...)

	out := buf.String()
	for _, secret := range []string{"sk-very-secret", "lf-secret"} {
		if strings.Contains(out, secret) {
			t.Errorf("audit record leaks %q: %s", secret, out)
		}
	}

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	want := map[string]string{
		"command":        "ask",
		"config_file":    "none",
		"MODEL_PROVIDER": "openai",
		"OPENAI_API_KEY": "set",
		"ARK_API_KEY":    "unset",
		"INDEX_BACKEND":  "sqlite",
		"CHUNK_SIZE":     "unset",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %q", k, rec[k], v)
		}
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()

	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/pdfqa.yaml"); got != "/tmp/pdfqa.yaml" {
		t.Errorf("expected '/tmp/pdfqa.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" && home != "/" {
		p := filepath.Join(home, ".pdfqa", "config.yaml")
		if got := sanitiseConfigPath(p); got != "~/.pdfqa/config.yaml" {
			t.Errorf("expected '~/.pdfqa/config.yaml', got %q", got)
		}
	}
}
