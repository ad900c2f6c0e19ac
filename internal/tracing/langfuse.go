// Package tracing wires optional Langfuse tracing into eino's global callbacks.
package tracing

import (
	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// DefaultHost is the Langfuse host used when none is configured.
const DefaultHost = "http://localhost:3000"

// Config holds the Langfuse connection settings.
type Config struct {
	// Host is the Langfuse base URL (LANGFUSE_HOST).
	Host string
	// PublicKey is LANGFUSE_PUBLIC_KEY.
	PublicKey string
	// SecretKey is LANGFUSE_SECRET_KEY.
	SecretKey string
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool { return c.PublicKey != "" && c.SecretKey != "" }

// Setup initialises the Langfuse callback handler when cfg carries both keys.
// The returned flush function must be called before process exit so pending
// traces are sent. When tracing is not configured the handler and flush are
// nil and ok is false.
func Setup(cfg Config) (handler callbacks.Handler, flush func(), ok bool) {
	if !cfg.Enabled() {
		return nil, nil, false
	}
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}

	handler, flush = langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
	})
	return handler, flush, true
}

// Install registers the handler globally when tracing is configured and
// returns a flush function that is always safe to call.
func Install(cfg Config) func() {
	handler, flush, ok := Setup(cfg)
	if !ok {
		return func() {}
	}
	callbacks.AppendGlobalHandlers(handler)
	return flush
}
