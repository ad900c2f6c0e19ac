package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/qa"
	"github.com/54b3r/pdfqa-go/internal/rag"
)

// statusOf maps a pipeline error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, qa.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, qa.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, rag.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, rag.ErrEmbedding), errors.Is(err, rag.ErrSynthesis):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// outcomeOf is the metric label for err.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, qa.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, rag.ErrConfiguration):
		return "configuration"
	case errors.Is(err, rag.ErrExtraction):
		return "extraction"
	case errors.Is(err, rag.ErrEmbedding):
		return "embedding"
	case errors.Is(err, rag.ErrSynthesis):
		return "synthesis"
	default:
		return "error"
	}
}

// writeError logs err and replies with its status and user-facing message.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusOf(err)
	log := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Int("status", status), slog.Any("error", err))
	} else {
		log.Warn("request rejected", slog.Int("status", status), slog.Any("error", err))
	}
	writeJSONError(ctx, w, qa.Describe(err), status)
}

// writeJSONError replies with {"error": msg}.
func writeJSONError(ctx context.Context, w http.ResponseWriter, msg string, status int) {
	writeJSON(ctx, w, status, errorResponse{Error: msg})
}
