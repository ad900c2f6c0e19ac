package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/pdfqa-go/internal/ingestion"
	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/qa"
)

// uploadField is the multipart field carrying the PDF.
const uploadField = "file"

// handleUpload handles POST /api/documents. It builds a fresh pipeline from
// the uploaded PDF and makes it the current one, even when the build fails,
// so later questions report the failed state instead of answering from an
// older document. Builds run one at a time.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	if r.ContentLength > s.cfg.MaxUploadBytes {
		writeJSONError(ctx, w, "file exceeds the upload limit", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(ctx, w, "file exceeds the upload limit", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(ctx, w, "expected a multipart form with a PDF in the \"file\" field", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeJSONError(ctx, w, "missing \"file\" field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(ctx, w, "could not read upload", http.StatusBadRequest)
		return
	}
	doc := qa.Document{Source: ingestion.SourceName(header.Filename), Data: data}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	p, err := s.newPipeline(ctx)
	if err != nil {
		s.metrics.buildTotal.WithLabelValues(outcomeOf(err)).Inc()
		s.writeError(ctx, w, err)
		return
	}

	report, err := p.Build(ctx, doc)
	s.setCurrent(p)
	s.metrics.buildTotal.WithLabelValues(outcomeOf(err)).Inc()
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.metrics.buildChunks.Observe(float64(report.Chunks))

	log.Info("document uploaded",
		slog.String("source", report.Source),
		slog.Int("bytes", len(data)),
		slog.Int("chunks", report.Chunks),
	)
	writeJSON(ctx, w, http.StatusOK, documentResponse{
		Source: report.Source,
		Chunks: report.Chunks,
		State:  p.State().String(),
	})
}

// handleAsk handles POST /api/ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSONError(r.Context(), w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSONError(r.Context(), w, "question is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AskTimeout)
	defer cancel()

	start := time.Now()
	ans, err := s.ask(ctx, req.Question)
	outcome := outcomeOf(err)
	s.metrics.askTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, ans)
}

// ask forwards to the current pipeline, or fails with qa.ErrInvalidState
// when no document has been uploaded.
func (s *Server) ask(ctx context.Context, question string) (qa.Answer, error) {
	s.mu.RLock()
	p := s.current
	s.mu.RUnlock()
	if p == nil {
		return qa.Answer{}, qa.ErrInvalidState
	}
	return p.Ask(ctx, question)
}

// handleResetIndex handles DELETE /api/index. It clears every stored chunk
// and forgets the current pipeline. An upload in progress finishes first, so
// its chunks are cleared too.
func (s *Server) handleResetIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Reset(ctx); err != nil {
		logging.FromContext(ctx).Error("index reset failed", slog.Any("error", err))
		writeJSONError(ctx, w, "could not clear the index", http.StatusInternalServerError)
		return
	}
	s.current = nil
	writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) setCurrent(p Pipeline) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}
