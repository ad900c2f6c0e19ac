package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/54b3r/pdfqa-go/internal/config"
	"github.com/54b3r/pdfqa-go/internal/embedder"
	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/qa"
	"github.com/54b3r/pdfqa-go/internal/rag"
	"github.com/54b3r/pdfqa-go/internal/store"
)

// UserMessage is the line printed for a failed command. Pipeline errors get
// the friendly description; usage errors are printed as cobra reports them.
func UserMessage(err error) string {
	if rag.KindOf(err) != nil || errors.Is(err, qa.ErrInvalidState) || errors.Is(err, qa.ErrEmptyQuestion) {
		return qa.Describe(err)
	}
	return err.Error()
}

// loadSettings resolves and validates every setting. Credentials are
// checked here, before any index is opened or network call made.
func loadSettings(ctx context.Context) (*config.Settings, error) {
	s, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	embedder.Preflight(logging.FromContext(ctx), &s.Embedder)
	return s, nil
}

// openIndex opens the configured vector store.
func openIndex(ctx context.Context, s *config.Settings) (store.Store, error) {
	st, err := store.Open(ctx, s.Index, s.Embedder.VectorSize())
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("index opened", slog.String("backend", st.Name()))
	return st, nil
}

// readDocument loads the PDF at path. The path as given is the source
// identifier recorded on every chunk.
func readDocument(path string) (qa.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return qa.Document{}, rag.ExtractionError("read file", err)
	}
	return qa.Document{Source: path, Data: data}, nil
}

// pdfFlags are the flags shared by ask and chat.
type pdfFlags struct {
	path  string
	reset bool
}

// buildFromFlags opens the index, optionally clears it, and builds a
// pipeline from the PDF named by flags. Progress goes to stderr. The
// returned close function releases the index.
func buildFromFlags(ctx context.Context, s *config.Settings, flags pdfFlags, stderr io.Writer) (*qa.Pipeline, func(), error) {
	log := logging.FromContext(ctx)

	if flags.path == "" {
		return nil, nil, fmt.Errorf("--pdf is required")
	}
	doc, err := readDocument(flags.path)
	if err != nil {
		return nil, nil, err
	}

	st, err := openIndex(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	closeIndex := func() { _ = st.Close() }

	if flags.reset {
		if err := st.Reset(ctx); err != nil {
			closeIndex()
			return nil, nil, fmt.Errorf("reset index: %w", err)
		}
		log.Info("index cleared", slog.String("backend", st.Name()))
	} else if n, err := st.Count(ctx); err == nil && n > 0 {
		log.Info("index already holds chunks from earlier runs; pass --reset to start clean",
			slog.Int("chunks", n))
	}

	p, err := qa.NewFromConfig(ctx, s, st, func(msg string) {
		fmt.Fprintln(stderr, msg)
	})
	if err != nil {
		closeIndex()
		return nil, nil, err
	}
	report, err := p.Build(ctx, doc)
	if err != nil {
		closeIndex()
		return nil, nil, err
	}
	fmt.Fprintf(stderr, "Indexed %d chunks from %s in %s\n", report.Chunks, report.Source, report.Duration.Round(time.Millisecond))
	return p, closeIndex, nil
}

// printAnswer writes the answer followed by its sources.
func printAnswer(w io.Writer, ans qa.Answer) {
	fmt.Fprintln(w, strings.TrimSpace(ans.Text))
	if len(ans.Sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sources:")
	for _, src := range ans.Sources {
		fmt.Fprintf(w, "  - %s\n", src)
	}
}
