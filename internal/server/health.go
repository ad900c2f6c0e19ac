package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/54b3r/pdfqa-go/internal/logging"
)

// probeTimeout bounds each dependency probe so /api/ready answers quickly
// when a dependency hangs.
const probeTimeout = 5 * time.Second

// documentNone is the readiness document state before the first upload.
const documentNone = "none"

// Pinger is a dependency that can report its own reachability.
// Implementations must be safe for concurrent use.
type Pinger interface {
	// Ping returns nil when the dependency is reachable.
	Ping(ctx context.Context) error
	// Name labels the dependency in readiness responses (e.g. "sqlite",
	// "llm:ollama").
	Name() string
}

// dependencyCheck is one probe result in a readiness report.
type dependencyCheck struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// readinessReport is the JSON body of GET /api/ready. Ready reflects the
// dependencies only; Document reports the current pipeline's state, which
// is "none" until a PDF has been uploaded.
type readinessReport struct {
	Ready    bool              `json:"ready"`
	Document string            `json:"document"`
	Checks   []dependencyCheck `json:"checks"`
}

// handleReady handles GET /api/ready. Every pinger is probed concurrently;
// the response is 200 when all succeed and 503 otherwise. Checks keep the
// order the pingers were registered in.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := probeAll(ctx, s.pingers)

	report := readinessReport{Ready: true, Document: s.documentState(), Checks: checks}
	for _, c := range checks {
		if !c.OK {
			report.Ready = false
			logging.FromContext(ctx).Warn("readiness probe failed",
				slog.String("dependency", c.Name),
				slog.String("error", c.Error),
			)
		}
	}

	status := http.StatusOK
	if !report.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(ctx, w, status, report)
}

// probeAll pings each dependency in its own goroutine.
func probeAll(ctx context.Context, pingers []Pinger) []dependencyCheck {
	checks := make([]dependencyCheck, len(pingers))
	var wg sync.WaitGroup
	for i, p := range pingers {
		wg.Go(func() {
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			start := time.Now()
			err := p.Ping(probeCtx)
			checks[i] = dependencyCheck{
				Name:      p.Name(),
				OK:        err == nil,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				checks[i].Error = err.Error()
			}
		})
	}
	wg.Wait()
	return checks
}

// documentState reports the current pipeline's state for readiness output.
func (s *Server) documentState() string {
	s.mu.RLock()
	p := s.current
	s.mu.RUnlock()
	if p == nil {
		return documentNone
	}
	return p.State().String()
}
