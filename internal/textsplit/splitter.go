// Package textsplit splits cleaned document text into overlapping chunks of
// bounded size.
//
// Sizes are counted in runes. Chunk i covers text[start_i:end_i] and the next
// chunk starts at end_i - overlap, so neighbours share exactly overlap runes
// and dropping the first overlap runes of every chunk after the first
// reconstructs the input. Each end is placed after the strongest natural
// boundary that fits: paragraph, line, sentence, then word. A hard cut at the
// size limit is used only when no boundary fits.
package textsplit

import (
	"fmt"
	"iter"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// Defaults used when no explicit chunking is configured.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separatorClasses lists boundary separators from strongest to weakest.
// A chunk ends immediately after the separator.
var separatorClasses = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{" "},
}

// Splitter produces overlapping chunks. It holds no per-call state and is
// safe for concurrent use.
type Splitter struct {
	maxSize int
	overlap int
}

// New returns a Splitter producing chunks of at most maxSize runes that
// overlap their successor by exactly overlap runes.
func New(maxSize, overlap int) (*Splitter, error) {
	if maxSize <= 0 {
		return nil, rag.ConfigError("CHUNK_SIZE", fmt.Sprintf("CHUNK_SIZE must be positive, got %d", maxSize))
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, rag.ConfigError("CHUNK_OVERLAP",
			fmt.Sprintf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d with CHUNK_SIZE %d", overlap, maxSize))
	}
	return &Splitter{maxSize: maxSize, overlap: overlap}, nil
}

// MaxSize returns the chunk size bound in runes.
func (s *Splitter) MaxSize() int { return s.maxSize }

// Overlap returns the number of runes shared by adjacent chunks.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunks of text as a lazy sequence. The sequence can be
// ranged over any number of times. Empty text yields no chunks.
func (s *Splitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(text)
		n := len(runes)
		start := 0
		for start < n {
			if n-start <= s.maxSize {
				yield(string(runes[start:]))
				return
			}
			end := s.cutPoint(runes, start)
			if !yield(string(runes[start:end])) {
				return
			}
			start = end - s.overlap
		}
	}
}

// Collect returns every chunk of text.
func (s *Splitter) Collect(text string) []string {
	var chunks []string
	for c := range s.Split(text) {
		chunks = append(chunks, c)
	}
	return chunks
}

// cutPoint picks the end of the chunk beginning at start. The result lies in
// (start+overlap, start+maxSize] so every step makes progress.
//
// The strongest separator class whose latest match reaches the half-fill mark
// wins. Failing that, the latest match of any class is used, and failing that
// the chunk is cut at the size limit.
func (s *Splitter) cutPoint(runes []rune, start int) int {
	lo := start + s.overlap + 1
	hi := start + s.maxSize
	mark := start + s.overlap + (s.maxSize-s.overlap)/2

	fallback := -1
	for _, class := range separatorClasses {
		best := latestBoundary(runes, start, lo, hi, class)
		if best < 0 {
			continue
		}
		if best >= mark {
			return best
		}
		fallback = max(fallback, best)
	}
	if fallback > 0 {
		return fallback
	}
	return hi
}

// latestBoundary returns the largest end in [lo, hi] such that
// runes[start:end] ends with one of seps, or -1.
func latestBoundary(runes []rune, start, lo, hi int, seps []string) int {
	for end := hi; end >= lo; end-- {
		for _, sep := range seps {
			if endsWith(runes, start, end, sep) {
				return end
			}
		}
	}
	return -1
}

// endsWith reports whether runes[start:end] ends with sep.
func endsWith(runes []rune, start, end int, sep string) bool {
	sr := []rune(sep)
	if end-len(sr) < start {
		return false
	}
	for i, r := range sr {
		if runes[end-len(sr)+i] != r {
			return false
		}
	}
	return true
}
