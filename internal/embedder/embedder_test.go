package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "openai/valid", cfg: Config{Backend: BackendOpenAI, APIKey: "sk-test", Model: DefaultOpenAIModel}},
		{name: "openai/missing key", cfg: Config{Backend: BackendOpenAI, Model: DefaultOpenAIModel}, wantErr: "OPENAI_API_KEY"},
		{name: "openai/missing key named by source", cfg: Config{Backend: BackendOpenAI, KeyEnv: "EMBEDDING_API_KEY", Model: "m"}, wantErr: "EMBEDDING_API_KEY"},
		{name: "openai/missing model", cfg: Config{Backend: BackendOpenAI, APIKey: "sk-test"}, wantErr: "EMBEDDING_MODEL"},
		{name: "azure/valid", cfg: Config{Backend: BackendAzure, APIKey: "k", BaseURL: "https://x.openai.azure.com", Model: "emb"}},
		{name: "azure/missing key", cfg: Config{Backend: BackendAzure, BaseURL: "https://x", Model: "emb"}, wantErr: "AZURE_OPENAI_API_KEY"},
		{name: "azure/missing endpoint", cfg: Config{Backend: BackendAzure, APIKey: "k", Model: "emb"}, wantErr: "AZURE_OPENAI_ENDPOINT"},
		{name: "ollama/valid without key", cfg: Config{Backend: BackendOllama, Model: DefaultOllamaModel}},
		{name: "ollama/missing model", cfg: Config{Backend: BackendOllama}, wantErr: "EMBEDDING_MODEL"},
		{name: "unknown backend", cfg: Config{Backend: "bedrock", Model: "x"}, wantErr: "EMBEDDING_PROVIDER"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, rag.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q should mention %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestVectorSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cfg  Config
		want int
	}{
		{Config{Backend: BackendOpenAI}, 1536},
		{Config{Backend: BackendAzure}, 1536},
		{Config{Backend: BackendOllama}, 768},
		{Config{Backend: BackendOpenAI, Dimensions: 256}, 256},
	}
	for _, tc := range tests {
		if got := tc.cfg.VectorSize(); got != tc.want {
			t.Errorf("VectorSize(%+v): got %d, want %d", tc.cfg, got, tc.want)
		}
	}
	if DefaultModel(BackendOllama) != DefaultOllamaModel || DefaultModel(BackendOpenAI) != DefaultOpenAIModel {
		t.Error("unexpected default models")
	}
}

func TestNew_ValidatesBeforeConstructing(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), &Config{Backend: BackendOpenAI, Model: DefaultOpenAIModel})
	if !errors.Is(err, rag.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if _, err := New(context.Background(), nil); err == nil {
		t.Error("expected error for nil config")
	}

	emb, err := New(context.Background(), &Config{Backend: BackendOllama, Model: DefaultOllamaModel})
	if err != nil {
		t.Fatalf("New(ollama): %v", err)
	}
	if _, ok := emb.(*OllamaEmbedder); !ok {
		t.Errorf("expected *OllamaEmbedder, got %T", emb)
	}
}

// ---------------------------------------------------------------------------
// Ollama
// ---------------------------------------------------------------------------

func TestOllamaEmbedder_Embed(t *testing.T) {
	t.Parallel()

	var gotReq ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/embed" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		out := ollamaEmbedResponse{}
		for i := range gotReq.Input {
			out.Embeddings = append(out.Embeddings, []float32{float32(i), 1})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)

	emb := NewOllamaEmbedder(&Config{Backend: BackendOllama, BaseURL: srv.URL + "/", Model: "nomic-embed-text"})
	vecs, err := emb.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 3 || vecs[2][0] != 2 {
		t.Errorf("unexpected vectors: %v", vecs)
	}
	if gotReq.Model != "nomic-embed-text" || len(gotReq.Input) != 3 {
		t.Errorf("unexpected request: %+v", gotReq)
	}
}

func TestOllamaEmbedder_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error with message", status: http.StatusNotFound, body: `{"error":"model not found"}`, wantErr: "model not found"},
		{name: "server error plain", status: http.StatusBadGateway, body: `upstream down`, wantErr: "HTTP 502"},
		{name: "count mismatch", status: http.StatusOK, body: `{"embeddings":[[1,2]]}`, wantErr: "expected 2 embeddings"},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: "decode response"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)

			emb := NewOllamaEmbedder(&Config{BaseURL: srv.URL, Model: "m"})
			_, err := emb.Embed(context.Background(), []string{"a", "b"})
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestOllamaEmbedder_EmptyInputSkipsRequest(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	t.Cleanup(srv.Close)

	vecs, err := NewOllamaEmbedder(&Config{BaseURL: srv.URL, Model: "m"}).Embed(context.Background(), nil)
	if err != nil || len(vecs) != 0 {
		t.Errorf("got (%v, %v), want empty result", vecs, err)
	}
	if called {
		t.Error("no request expected for empty input")
	}
}

func TestOllamaEmbedder_Ping(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"version":"0.5.0"}`))
	}))
	t.Cleanup(srv.Close)

	emb := NewOllamaEmbedder(&Config{BaseURL: srv.URL, Model: "m"})
	if err := emb.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if emb.Name() != "ollama" {
		t.Errorf("Name: got %q", emb.Name())
	}
}

// ---------------------------------------------------------------------------
// OpenAI
// ---------------------------------------------------------------------------

func TestOpenAIEmbedder_Embed(t *testing.T) {
	t.Parallel()

	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Object string `json:"object"`
			Data   []item `json:"data"`
			Model  string `json:"model"`
			Usage  struct {
				PromptTokens int `json:"prompt_tokens"`
				TotalTokens  int `json:"total_tokens"`
			} `json:"usage"`
		}{Object: "list", Model: req.Model}
		for i := range req.Input {
			resp.Data = append(resp.Data, item{Object: "embedding", Embedding: []float32{0.5, float32(i)}, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	emb, err := NewOpenAIEmbedder(context.Background(), &Config{
		Backend: BackendOpenAI,
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Model:   DefaultOpenAIModel,
	})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder: %v", err)
	}

	vecs, err := emb.Embed(context.Background(), []string{"Paris", "France"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 0.5 || vecs[1][1] != 1 {
		t.Errorf("unexpected vectors: %v", vecs)
	}
	if !strings.Contains(auth, "sk-test") {
		t.Errorf("expected bearer credential, got %q", auth)
	}
}

func TestOpenAIEmbedder_Unauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)

	emb, err := NewOpenAIEmbedder(context.Background(), &Config{
		Backend: BackendOpenAI, APIKey: "sk-bad", BaseURL: srv.URL, Model: DefaultOpenAIModel,
	})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder: %v", err)
	}
	if _, err := emb.Embed(context.Background(), []string{"x"}); err == nil {
		t.Error("expected error for 401 response")
	}
}

// ---------------------------------------------------------------------------
// Preflight
// ---------------------------------------------------------------------------

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model string
		want  bool
	}{
		{"text-embedding-3-small", false},
		{"nomic-embed-text", false},
		{"mxbai-embed-large", false},
		{"gpt-4o-mini", true},
		{"llama3", true},
		{"qwen2.5", true},
		{"", false},
	}
	for _, tc := range tests {
		if got := looksLikeChatModel(tc.model); got != tc.want {
			t.Errorf("looksLikeChatModel(%q): got %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	if Preflight(log, &Config{Backend: BackendOpenAI, Model: DefaultOpenAIModel}) {
		t.Error("no warning expected for an embedding model")
	}
	if !Preflight(log, &Config{Backend: BackendOpenAI, Model: "gpt-4o-mini"}) {
		t.Error("warning expected for a chat model")
	}
	if !strings.Contains(buf.String(), "gpt-4o-mini") {
		t.Errorf("warning should name the model, got %q", buf.String())
	}
}
