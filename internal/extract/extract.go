// Package extract turns a PDF byte stream into a single cleaned text string.
// Pages are read in order, pages without text are skipped, and the surviving
// page texts are joined and whitespace-normalised by [CleanText].
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/rag"
)

// pageSource is the minimal view of a parsed PDF the extractor needs.
// Page numbers are 1-based.
type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

// Extractor reads text out of PDF documents. The zero value is ready to use
// and it is safe for concurrent use.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses the PDF in r and returns its cleaned text. A document with no
// extractable text yields "" and no error. Any failure to open or parse the
// document is returned as an extraction error.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			text = ""
			err = rag.ExtractionError("parse pdf", fmt.Errorf("malformed document: %v", p))
		}
	}()

	rd, err := pdf.NewReader(r, size)
	if err != nil {
		return "", rag.ExtractionError("open pdf", err)
	}
	return e.extractPages(ctx, &pdfPages{r: rd})
}

// ExtractBytes is Extract over an in-memory document.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte) (string, error) {
	return e.Extract(ctx, bytes.NewReader(data), int64(len(data)))
}

// ExtractFile opens the PDF at path and returns its cleaned text.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", rag.ExtractionError("open file", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", rag.ExtractionError("stat file", err)
	}
	return e.Extract(ctx, f, info.Size())
}

// extractPages walks every page of src, skipping empty ones, and returns the
// cleaned concatenation.
func (e *Extractor) extractPages(ctx context.Context, src pageSource) (string, error) {
	log := logging.FromContext(ctx)

	total := src.NumPage()
	pages := make([]string, 0, total)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return "", rag.ExtractionError("read pages", err)
		}
		txt, err := src.PageText(n)
		if err != nil {
			return "", rag.ExtractionError(fmt.Sprintf("read page %d", n), err)
		}
		if strings.TrimSpace(txt) == "" {
			continue
		}
		pages = append(pages, txt)
	}

	cleaned := CleanText(strings.Join(pages, "\n"))
	log.Debug("pdf text extracted",
		slog.Int("pages", total),
		slog.Int("pages_with_text", len(pages)),
		slog.Int("chars", len(cleaned)),
	)
	return cleaned, nil
}

// CleanText collapses every run of whitespace into a single space and trims
// both ends. Newlines are not preserved. CleanText is idempotent.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// pdfPages adapts a parsed document to pageSource.
type pdfPages struct {
	r *pdf.Reader
}

func (p *pdfPages) NumPage() int { return p.r.NumPage() }

func (p *pdfPages) PageText(n int) (string, error) {
	page := p.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
