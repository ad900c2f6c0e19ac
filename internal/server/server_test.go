package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/qa"
	"github.com/54b3r/pdfqa-go/internal/rag"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakePipeline is a test double for the Pipeline interface.
type fakePipeline struct {
	mu       sync.Mutex
	buildErr error
	askErr   error
	answer   qa.Answer
	state    qa.State
	built    []qa.Document
	asked    []string
	// started is closed when Build begins; Build then waits on release.
	started chan struct{}
	release chan struct{}
}

func (f *fakePipeline) Build(_ context.Context, doc qa.Document) (qa.BuildReport, error) {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built = append(f.built, doc)
	if f.buildErr != nil {
		f.state = qa.StateFailed
		return qa.BuildReport{Source: doc.Source}, f.buildErr
	}
	f.state = qa.StateReady
	return qa.BuildReport{Source: doc.Source, Chunks: 7}, nil
}

func (f *fakePipeline) Ask(_ context.Context, question string) (qa.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, question)
	if f.state != qa.StateReady {
		return qa.Answer{}, qa.ErrInvalidState
	}
	if f.askErr != nil {
		return qa.Answer{}, f.askErr
	}
	return f.answer, nil
}

func (f *fakePipeline) State() qa.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// fakeIndex records Reset calls.
type fakeIndex struct {
	mu     sync.Mutex
	resets int
	err    error
}

func (f *fakeIndex) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.err
}

// newTestServer builds a Server whose factory hands out pipelines in order
// and whose metrics go to a fresh registry.
func newTestServer(t *testing.T, pipelines ...*fakePipeline) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	var (
		mu   sync.Mutex
		next int
	)
	factory := func(context.Context) (Pipeline, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(pipelines) {
			return nil, errors.New("no more fake pipelines")
		}
		p := pipelines[next]
		next++
		return p, nil
	}
	s, err := New(factory, &fakeIndex{}, &Config{
		Logger:          logging.Discard(),
		MetricsRegistry: reg,
		MetricsGatherer: reg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s, reg
}

// uploadRequest builds a multipart POST /api/documents request.
func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(uploadField, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "127.0.0.1:5000"
	return req
}

func askRequestFor(question string) *http.Request {
	body, _ := json.Marshal(askRequest{Question: question})
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:5000"
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Constructor
// ---------------------------------------------------------------------------

func TestNew_RequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &fakeIndex{}, nil); err == nil {
		t.Error("expected error for nil factory")
	}
	factory := func(context.Context) (Pipeline, error) { return &fakePipeline{}, nil }
	if _, err := New(factory, nil, nil); err == nil {
		t.Error("expected error for nil index")
	}
}

// ---------------------------------------------------------------------------
// POST /api/documents, POST /api/ask
// ---------------------------------------------------------------------------

func TestUploadThenAsk(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{answer: qa.Answer{Text: "Paris.", Sources: []string{"sample.pdf"}}}
	s, _ := newTestServer(t, p)

	w := serve(s, uploadRequest(t, `C:\fakepath\sample.pdf`, []byte("%PDF-1.4")))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d (body: %s)", w.Code, w.Body.String())
	}
	var doc documentResponse
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if doc.Source != "sample.pdf" || doc.Chunks != 7 || doc.State != "ready" {
		t.Errorf("unexpected upload response: %+v", doc)
	}
	if len(p.built) != 1 || string(p.built[0].Data) != "%PDF-1.4" {
		t.Errorf("pipeline did not receive the upload: %+v", p.built)
	}

	w = serve(s, askRequestFor("What is the capital of France?"))
	if w.Code != http.StatusOK {
		t.Fatalf("ask: expected 200, got %d (body: %s)", w.Code, w.Body.String())
	}
	var ans qa.Answer
	if err := json.NewDecoder(w.Body).Decode(&ans); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if ans.Text != "Paris." || len(ans.Sources) != 1 || ans.Sources[0] != "sample.pdf" {
		t.Errorf("unexpected answer: %+v", ans)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestAsk_NoDocument(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	w := serve(s, askRequestFor("anything?"))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", w.Code, w.Body.String())
	}
	var body errorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body.Error, "No document is ready") {
		t.Errorf("error = %q", body.Error)
	}
}

func TestAsk_BadInput(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	cases := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"blank question", `{"question":"   "}`},
		{"missing question", `{}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(tc.body))
		req.RemoteAddr = "127.0.0.1:5001"
		w := serve(s, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, w.Code)
		}
	}
}

func TestUpload_BadInput(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	req.RemoteAddr = "127.0.0.1:5002"
	if w := serve(s, req); w.Code != http.StatusBadRequest {
		t.Errorf("non-multipart: expected 400, got %d", w.Code)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "127.0.0.1:5002"
	if w := serve(s, req); w.Code != http.StatusBadRequest {
		t.Errorf("missing file field: expected 400, got %d", w.Code)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakePipeline{})
	s.cfg.MaxUploadBytes = 1024

	w := serve(s, uploadRequest(t, "big.pdf", bytes.Repeat([]byte("x"), 4096)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d (body: %s)", w.Code, w.Body.String())
	}
}

func TestUpload_FailedBuildBecomesCurrent(t *testing.T) {
	t.Parallel()

	good := &fakePipeline{answer: qa.Answer{Text: "old", Sources: []string{"old.pdf"}}}
	bad := &fakePipeline{buildErr: rag.ExtractionError("open pdf", errors.New("not a PDF"))}
	s, reg := newTestServer(t, good, bad)

	if w := serve(s, uploadRequest(t, "old.pdf", []byte("%PDF"))); w.Code != http.StatusOK {
		t.Fatalf("first upload: %d", w.Code)
	}
	w := serve(s, uploadRequest(t, "broken.pdf", []byte("garbage")))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("failed build: expected 422, got %d (body: %s)", w.Code, w.Body.String())
	}

	// Questions now go to the failed pipeline, not the older document.
	if w := serve(s, askRequestFor("anything?")); w.Code != http.StatusConflict {
		t.Errorf("ask after failed build: expected 409, got %d", w.Code)
	}
	if got := counterValue(t, reg, "pdfqa_build_total", "extraction"); got != 1 {
		t.Errorf("pdfqa_build_total{outcome=extraction} = %v, want 1", got)
	}
}

func TestUpload_FactoryError(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	factory := func(context.Context) (Pipeline, error) {
		return nil, rag.MissingSettingError("OPENAI_API_KEY")
	}
	s, err := New(factory, &fakeIndex{}, &Config{
		Logger:          logging.Discard(),
		MetricsRegistry: reg,
		MetricsGatherer: reg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)

	w := serve(s, uploadRequest(t, "sample.pdf", []byte("%PDF")))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body errorResponse
	_ = json.NewDecoder(w.Body).Decode(&body)
	if !strings.Contains(body.Error, "The OpenAI API key is missing") {
		t.Errorf("error = %q", body.Error)
	}
}

func TestAsk_ErrorStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"embedding", rag.EmbeddingError("embed query", errors.New("connection refused")), http.StatusBadGateway},
		{"synthesis", rag.SynthesisError("generate", errors.New("503")), http.StatusBadGateway},
		{"timeout", rag.SynthesisError("generate", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := &fakePipeline{askErr: tc.err}
			s, _ := newTestServer(t, p)
			if w := serve(s, uploadRequest(t, "a.pdf", []byte("%PDF"))); w.Code != http.StatusOK {
				t.Fatalf("upload: %d", w.Code)
			}
			if w := serve(s, askRequestFor("q?")); w.Code != tc.want {
				t.Errorf("expected %d, got %d (body: %s)", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// DELETE /api/index
// ---------------------------------------------------------------------------

func TestResetIndex(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{answer: qa.Answer{Text: "x", Sources: []string{"a.pdf"}}}
	s, _ := newTestServer(t, p)
	if w := serve(s, uploadRequest(t, "a.pdf", []byte("%PDF"))); w.Code != http.StatusOK {
		t.Fatalf("upload: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/index", nil)
	if w := serve(s, req); w.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", w.Code)
	}
	if got := s.index.(*fakeIndex).resets; got != 1 {
		t.Errorf("index resets = %d, want 1", got)
	}
	if w := serve(s, askRequestFor("q?")); w.Code != http.StatusConflict {
		t.Errorf("ask after reset: expected 409, got %d", w.Code)
	}
}

func TestResetIndex_WaitsForInFlightUpload(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{started: make(chan struct{}), release: make(chan struct{})}
	s, _ := newTestServer(t, p)

	upload := uploadRequest(t, "a.pdf", []byte("%PDF"))
	uploaded := make(chan int, 1)
	go func() {
		uploaded <- serve(s, upload).Code
	}()
	<-p.started

	cleared := make(chan int, 1)
	go func() {
		cleared <- serve(s, httptest.NewRequest(http.MethodDelete, "/api/index", nil)).Code
	}()

	select {
	case code := <-cleared:
		t.Fatalf("reset returned %d while an upload was still building", code)
	case <-time.After(50 * time.Millisecond):
	}

	close(p.release)
	if code := <-uploaded; code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d", code)
	}
	if code := <-cleared; code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", code)
	}

	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if current != nil {
		t.Error("pipeline built before the reset is still current")
	}
	if w := serve(s, askRequestFor("q?")); w.Code != http.StatusConflict {
		t.Errorf("ask after reset: expected 409, got %d", w.Code)
	}
}

func TestResetIndex_StoreError(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	s.index = &fakeIndex{err: errors.New("disk full")}
	req := httptest.NewRequest(http.MethodDelete, "/api/index", nil)
	if w := serve(s, req); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func TestStatusAndOutcome(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err     error
		status  int
		outcome string
	}{
		{nil, http.StatusInternalServerError, "ok"},
		{qa.ErrEmptyQuestion, http.StatusBadRequest, "error"},
		{qa.ErrInvalidState, http.StatusConflict, "invalid_state"},
		{rag.MissingSettingError("OPENAI_API_KEY"), http.StatusInternalServerError, "configuration"},
		{rag.ExtractionError("open", errors.New("x")), http.StatusUnprocessableEntity, "extraction"},
		{rag.EmbeddingError("embed", errors.New("x")), http.StatusBadGateway, "embedding"},
		{rag.SynthesisError("generate", errors.New("x")), http.StatusBadGateway, "synthesis"},
		{rag.EmbeddingError("embed", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
	}
	for _, tc := range cases {
		if tc.err != nil {
			if got := statusOf(tc.err); got != tc.status {
				t.Errorf("statusOf(%v) = %d, want %d", tc.err, got, tc.status)
			}
		}
		if got := outcomeOf(tc.err); got != tc.outcome {
			t.Errorf("outcomeOf(%v) = %q, want %q", tc.err, got, tc.outcome)
		}
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	health := func(id string) string {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		if id != "" {
			req.Header.Set(requestIDHeader, id)
		}
		return serve(s, req).Header().Get(requestIDHeader)
	}

	if got := health("edge-7f3a_1"); got != "edge-7f3a_1" {
		t.Errorf("well-formed caller ID not reused: got %q", got)
	}
	for _, bad := range []string{"", "has space", "<script>", strings.Repeat("a", maxRequestIDLen+1)} {
		got := health(bad)
		if got == "" || got == bad {
			t.Errorf("caller ID %q: expected a fresh ID, got %q", bad, got)
		}
	}
}
