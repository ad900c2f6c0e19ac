// Package ingestion implements the document write path: extract the PDF's
// text, split it into overlapping chunks, and add the chunks to the
// embedding index in a single all-or-nothing write.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/rag"
	"github.com/54b3r/pdfqa-go/internal/textsplit"
)

// Document is a PDF to ingest.
type Document struct {
	// Source is the caller-supplied path or name, recorded on every chunk.
	Source string

	// Data is the raw PDF bytes. It is read once and not retained.
	Data []byte
}

// Extractor turns PDF bytes into cleaned text.
type Extractor interface {
	ExtractBytes(ctx context.Context, data []byte) (string, error)
}

// Result summarises a completed ingestion.
type Result struct {
	// Source is the document's source identifier.
	Source string
	// Characters is the length of the cleaned text in runes.
	Characters int
	// Chunks is the number of chunks added to the index.
	Chunks int
	// Duration is the wall time of the whole run.
	Duration time.Duration
}

// Pipeline orchestrates the extract → split → embed → store flow for one
// document at a time.
type Pipeline struct {
	// extractor converts PDF bytes to cleaned text.
	extractor Extractor

	// splitter cuts cleaned text into chunks.
	splitter *textsplit.Splitter

	// index embeds and persists chunks.
	index *rag.Index

}

// NewPipeline constructs a Pipeline from the provided dependencies.
func NewPipeline(extractor Extractor, splitter *textsplit.Splitter, index *rag.Index) (*Pipeline, error) {
	if extractor == nil {
		return nil, fmt.Errorf("ingestion: extractor must not be nil")
	}
	if splitter == nil {
		return nil, fmt.Errorf("ingestion: splitter must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	return &Pipeline{
		extractor: extractor,
		splitter:  splitter,
		index:     index,
	}, nil
}

// Ingest extracts, chunks, embeds, and stores doc. Every chunk is embedded
// before any is stored, so a failure at any stage leaves the index
// unchanged. Progress is reported via the optional progress callback. Errors
// keep the classification of the stage that failed.
func (p *Pipeline) Ingest(ctx context.Context, doc Document, progress func(msg string)) (Result, error) {
	if progress == nil {
		progress = func(string) {}
	}
	ctx = logging.With(ctx, slog.String("source", doc.Source))
	log := logging.FromContext(ctx)
	start := time.Now()
	res := Result{Source: doc.Source}

	progress(fmt.Sprintf("extracting %s", doc.Source))
	text, err := p.extractor.ExtractBytes(ctx, doc.Data)
	if err != nil {
		return res, fmt.Errorf("ingestion: extract %s: %w", doc.Source, err)
	}
	res.Characters = len([]rune(text))
	if text == "" {
		log.Warn("ingestion: document has no extractable text")
	}

	var chunks []rag.Chunk
	for piece := range p.splitter.Split(text) {
		if err := ctx.Err(); err != nil {
			return res, rag.EmbeddingError("index chunks", err)
		}
		chunks = append(chunks, rag.Chunk{Text: piece, SourceID: doc.Source})
	}

	if len(chunks) > 0 {
		progress(fmt.Sprintf("embedding %d chunks from %s", len(chunks), doc.Source))
		if err := p.index.Add(ctx, chunks); err != nil {
			return res, fmt.Errorf("ingestion: index %s: %w", doc.Source, err)
		}
	}
	res.Chunks = len(chunks)
	progress(fmt.Sprintf("indexed %d chunks from %s", res.Chunks, doc.Source))

	res.Duration = time.Since(start)
	log.Info("ingestion: document indexed",
		slog.Int("characters", res.Characters),
		slog.Int("chunks", res.Chunks),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}
