// Package server implements the HTTP API for pdfqa: upload a PDF, ask
// questions about it, clear the index. The server is started by the
// `pdfqa serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/version"
)

// defaultMaxUploadBytes is the upload cap when none is configured.
const defaultMaxUploadBytes = 32 << 20

// New constructs a Server. newPipeline is called once per uploaded
// document; index is the store shared by those pipelines.
func New(newPipeline PipelineFactory, index Index, cfg *Config) (*Server, error) {
	if newPipeline == nil {
		return nil, fmt.Errorf("server: pipeline factory must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("server: index must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.AskTimeout == 0 {
		cfg.AskTimeout = 2 * time.Minute
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.UploadRateLimit == 0 {
		cfg.UploadRateLimit = defaultUploadRateLimit
	}
	if cfg.UploadRateBurst == 0 {
		cfg.UploadRateBurst = defaultUploadRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	s := &Server{
		newPipeline:  newPipeline,
		index:        index,
		cfg:          cfg,
		log:          log,
		pingers:      cfg.Pingers,
		metrics:      newServerMetrics(cfg.MetricsRegistry),
		askLimits:    newLimiterPool(cfg.RateLimit, cfg.RateBurst),
		uploadLimits: newLimiterPool(cfg.UploadRateLimit, cfg.UploadRateBurst),
	}
	s.stopRL = startSweeper(sweepInterval, s.askLimits, s.uploadLimits)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, s.routes()),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// routes registers every endpoint. Uploads and questions are rate limited;
// probes and metrics are not.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/documents", s.rateLimited("documents", s.uploadLimits, s.instrument("documents", s.handleUpload)))
	mux.Handle("POST /api/ask", s.rateLimited("ask", s.askLimits, s.instrument("ask", s.handleAsk)))
	mux.Handle("DELETE /api/index", s.instrument("index", s.handleResetIndex))
	mux.Handle("GET /api/health", s.instrument("health", s.handleHealth))
	mux.Handle("GET /api/ready", s.instrument("ready", s.handleReady))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	return mux
}

// Handler returns the server's root handler, middleware included.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.log.Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// healthResponse is the JSON body returned by GET /api/health.
type healthResponse struct {
	Status  string       `json:"status"`
	Version version.Info `json:"version"`
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok", Version: version.Get()})
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(ctx).Error("response encode error", slog.Any("error", err))
	}
}
