// Package qa is the single-document question-answering pipeline. A Pipeline
// is built once from one PDF and then answers any number of questions about
// it, returning each answer with the sources of the chunks it drew on.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/pdfqa-go/internal/answer"
	"github.com/54b3r/pdfqa-go/internal/embedder"
	"github.com/54b3r/pdfqa-go/internal/ingestion"
	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/provider"
	"github.com/54b3r/pdfqa-go/internal/rag"
	"github.com/54b3r/pdfqa-go/internal/textsplit"
)

// Document is the PDF a Pipeline is built from.
type Document = ingestion.Document

// Answer is the result of one question.
type Answer struct {
	// Text is the model's answer.
	Text string `json:"answer"`
	// Sources lists the distinct source identifiers of the retrieved chunks
	// in first-seen order. It is empty, never nil, when nothing was retrieved.
	Sources []string `json:"sources"`
}

// BuildReport summarises a successful Build.
type BuildReport struct {
	Source   string
	Chunks   int
	Duration time.Duration
}

// Settings is the explicit configuration of a Pipeline.
type Settings struct {
	// Provider selects the chat backend and carries its credential.
	Provider provider.Config
	// Embedder selects the embedding backend and carries its credential.
	Embedder embedder.Config
	// ChunkSize and ChunkOverlap configure the chunker, in runes.
	ChunkSize    int
	ChunkOverlap int
	// TopK is the number of chunks retrieved per question.
	TopK int
	// MaxPromptTokens is the prompt size above which synthesis warns.
	MaxPromptTokens int
}

// Validate checks the credentials of the selected backends and the
// chunking bounds. It makes no network call.
func (s *Settings) Validate() error {
	if err := s.Provider.Validate(); err != nil {
		return err
	}
	if err := s.Embedder.Validate(); err != nil {
		return err
	}
	if _, err := textsplit.New(s.ChunkSize, s.ChunkOverlap); err != nil {
		return err
	}
	return nil
}

// Components are the collaborators a Pipeline drives. Tests substitute
// fakes; NewFromConfig builds the production set.
type Components struct {
	Extractor ingestion.Extractor
	Embedder  rag.Embedder
	Store     rag.VectorStore
	ChatModel model.BaseChatModel

	// Progress optionally receives build progress messages.
	Progress func(msg string)
}

// Pipeline answers questions about one PDF. Build must succeed before Ask.
// Concurrent Ask calls on a ready Pipeline are safe.
type Pipeline struct {
	mu    sync.RWMutex
	state State

	ingest    *ingestion.Pipeline
	retriever rag.Retriever
	synth     *answer.Synthesizer
	progress  func(string)
}

// New validates settings and then assembles a Pipeline from deps. A
// configuration error is returned before any dependency is used.
func New(settings Settings, deps Components) (*Pipeline, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if deps.Extractor == nil || deps.Embedder == nil || deps.Store == nil || deps.ChatModel == nil {
		return nil, fmt.Errorf("qa: extractor, embedder, store and chat model are all required")
	}

	splitter, err := textsplit.New(settings.ChunkSize, settings.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	index, err := rag.NewIndex(deps.Embedder, deps.Store)
	if err != nil {
		return nil, fmt.Errorf("qa: %w", err)
	}
	ingest, err := ingestion.NewPipeline(deps.Extractor, splitter, index)
	if err != nil {
		return nil, fmt.Errorf("qa: %w", err)
	}
	retriever, err := rag.NewRetriever(index, settings.TopK)
	if err != nil {
		return nil, fmt.Errorf("qa: %w", err)
	}
	synth, err := answer.New(deps.ChatModel, answer.Options{
		Temperature:     settings.Provider.Tuning.Temperature,
		MaxPromptTokens: settings.MaxPromptTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("qa: %w", err)
	}

	return &Pipeline{
		state:     StateUninitialized,
		ingest:    ingest,
		retriever: retriever,
		synth:     synth,
		progress:  deps.Progress,
	}, nil
}

// State reports the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Build extracts, chunks and indexes doc. It is valid only once, on an
// uninitialized Pipeline. Any failure leaves the Pipeline Failed and returns
// the classified error of the stage that failed.
func (p *Pipeline) Build(ctx context.Context, doc Document) (BuildReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateUninitialized {
		return BuildReport{}, fmt.Errorf("qa: build: pipeline is %s: %w", p.state, ErrInvalidState)
	}

	res, err := p.ingest.Ingest(ctx, doc, p.progress)
	if err != nil {
		p.state = StateFailed
		logging.FromContext(ctx).Error("qa: build failed",
			slog.String("source", doc.Source),
			slog.Any("error", err),
		)
		return BuildReport{Source: doc.Source, Chunks: res.Chunks}, fmt.Errorf("qa: build: %w", err)
	}

	p.state = StateReady
	return BuildReport{Source: res.Source, Chunks: res.Chunks, Duration: res.Duration}, nil
}

// Ask answers question from the indexed document. It is valid only on a
// ready Pipeline; otherwise it fails with ErrInvalidState without touching
// any component.
func (p *Pipeline) Ask(ctx context.Context, question string) (Answer, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.state != StateReady {
		return Answer{}, fmt.Errorf("qa: ask: pipeline is %s: %w", p.state, ErrInvalidState)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	log := logging.FromContext(ctx)
	start := time.Now()

	chunks, err := p.retriever.Retrieve(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("qa: ask: %w", err)
	}
	text, err := p.synth.Synthesize(ctx, question, chunks)
	if err != nil {
		return Answer{}, fmt.Errorf("qa: ask: %w", err)
	}

	ans := Answer{Text: text, Sources: sources(chunks)}
	log.Info("qa: question answered",
		slog.Int("chunks", len(chunks)),
		slog.Int("sources", len(ans.Sources)),
		slog.Duration("duration", time.Since(start)),
	)
	return ans, nil
}

// sources returns the distinct source IDs of chunks in first-seen order.
func sources(chunks []rag.Chunk) []string {
	out := make([]string, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.SourceID]; ok {
			continue
		}
		seen[c.SourceID] = struct{}{}
		out = append(out, c.SourceID)
	}
	return out
}
