package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/pdfqa-go/internal/qa"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. Uploads
	// embed the whole document before responding, so it is generous.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// AskTimeout bounds a single POST /api/ask.
	AskTimeout time.Duration
	// MaxUploadBytes caps the multipart body of POST /api/documents.
	MaxUploadBytes int64
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained rate of POST /api/ask allowed per IP
	// (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum burst of questions per IP. Defaults to 20.
	RateBurst int
	// UploadRateLimit is the sustained rate of POST /api/documents allowed
	// per IP. Defaults to one upload every five seconds.
	UploadRateLimit float64
	// UploadRateBurst is the maximum burst of uploads per IP. Defaults to 5.
	UploadRateBurst int
	// MetricsRegistry receives the server's metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Pipeline is the document pipeline the server drives. *qa.Pipeline
// satisfies it; tests inject a fake.
type Pipeline interface {
	// Build indexes doc. It is called exactly once per Pipeline.
	Build(ctx context.Context, doc qa.Document) (qa.BuildReport, error)
	// Ask answers question from the built document.
	Ask(ctx context.Context, question string) (qa.Answer, error)
	// State reports the pipeline's lifecycle state.
	State() qa.State
}

// PipelineFactory returns a new, unbuilt Pipeline. It is called once per
// uploaded document.
type PipelineFactory func(ctx context.Context) (Pipeline, error)

// Index is the persistent chunk store shared by every pipeline.
type Index interface {
	// Reset removes every stored chunk.
	Reset(ctx context.Context) error
}

// Server is the HTTP front end of the question-answering pipeline.
type Server struct {
	// newPipeline builds the pipeline for each upload.
	newPipeline PipelineFactory
	// index is cleared by DELETE /api/index.
	index Index
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus collectors.
	metrics *serverMetrics
	// askLimits and uploadLimits hold the per-client token buckets.
	askLimits    *limiterPool
	uploadLimits *limiterPool
	// stopRL stops the idle-bucket sweeper. It is safe to call twice.
	stopRL func()

	// buildMu serialises uploads and index resets, which both write to the
	// shared index. A reset waits for an in-flight build to finish.
	buildMu sync.Mutex
	// mu guards current.
	mu sync.RWMutex
	// current is the pipeline of the most recent upload, nil until the first
	// upload and after DELETE /api/index.
	current Pipeline
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the natural-language question about the current document.
	Question string `json:"question"`
}

// documentResponse is the JSON response for POST /api/documents.
type documentResponse struct {
	// Source is the identifier recorded on the document's chunks.
	Source string `json:"source"`
	// Chunks is the number of chunks indexed.
	Chunks int `json:"chunks"`
	// State is the pipeline state after the build.
	State string `json:"state"`
}

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	// Error is the user-facing description of the failure.
	Error string `json:"error"`
}
