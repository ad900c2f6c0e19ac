package textsplit

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		size        int
		overlap     int
		wantSetting string
	}{
		{name: "zero size", size: 0, overlap: 0, wantSetting: "CHUNK_SIZE"},
		{name: "negative size", size: -5, overlap: 0, wantSetting: "CHUNK_SIZE"},
		{name: "negative overlap", size: 10, overlap: -1, wantSetting: "CHUNK_OVERLAP"},
		{name: "overlap equals size", size: 10, overlap: 10, wantSetting: "CHUNK_OVERLAP"},
		{name: "overlap above size", size: 10, overlap: 11, wantSetting: "CHUNK_OVERLAP"},
		{name: "no overlap", size: 10, overlap: 0},
		{name: "defaults", size: DefaultChunkSize, overlap: DefaultChunkOverlap},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(tc.size, tc.overlap)
			if tc.wantSetting == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if s.MaxSize() != tc.size || s.Overlap() != tc.overlap {
					t.Errorf("got (%d,%d), want (%d,%d)", s.MaxSize(), s.Overlap(), tc.size, tc.overlap)
				}
				return
			}
			if !errors.Is(err, rag.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			if rag.SettingOf(err) != tc.wantSetting {
				t.Errorf("setting: got %q, want %q", rag.SettingOf(err), tc.wantSetting)
			}
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	t.Parallel()

	s, _ := New(10, 2)
	for range s.Split("") {
		t.Fatal("expected no chunks for empty text")
	}
	if got := s.Collect(""); len(got) != 0 {
		t.Errorf("Collect: got %q", got)
	}
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	t.Parallel()

	s, _ := New(1000, 200)
	text := "Paris is the capital of France."
	got := s.Collect(text)
	if len(got) != 1 || got[0] != text {
		t.Errorf("got %q, want single chunk %q", got, text)
	}
}

func TestSplit_Boundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{
			name: "sentence boundary",
			text: "One sentence here. Another sentence follows here.",
			size: 30,
			want: []string{"One sentence here. ", "Another sentence follows here."},
		},
		{
			name: "word boundary",
			text: "alpha beta gamma delta",
			size: 12,
			want: []string{"alpha beta ", "gamma delta"},
		},
		{
			name:    "hard cut",
			text:    "abcdefghijklmnopqrstuvwxyz",
			size:    10,
			overlap: 2,
			want:    []string{"abcdefghij", "ijklmnopqr", "qrstuvwxyz"},
		},
		{
			name: "early sentence loses to late word",
			text: "Hi. abcd efgh ijkl mnop",
			size: 20,
			want: []string{"Hi. abcd efgh ijkl ", "mnop"},
		},
		{
			name: "paragraph preferred over sentence",
			text: "First part. Still first.\n\nSecond part goes on.",
			size: 40,
			want: []string{"First part. Still first.\n\n", "Second part goes on."},
		},
		{
			name:    "multibyte runes",
			text:    "日本語のテキストを分割する",
			size:    5,
			overlap: 1,
			want:    []string{"日本語のテ", "テキストを", "を分割する"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(tc.size, tc.overlap)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			got := s.Collect(tc.text)
			if !slices.Equal(got, tc.want) {
				t.Errorf("got %q\nwant %q", got, tc.want)
			}
		})
	}
}

// TestSplit_Invariants checks the size bound, exact overlap, and round trip
// for a grid of texts and parameters.
func TestSplit_Invariants(t *testing.T) {
	t.Parallel()

	texts := map[string]string{
		"prose":     strings.Repeat("Paris is the capital of France. It lies on the Seine! Is it large? Yes. ", 40),
		"no spaces": strings.Repeat("abcdefghij", 150),
		"unicode":   strings.Repeat("Ça va très bien, merci. 東京は大きい。 ", 60),
		"newlines":  strings.Repeat("line one\nline two\n\nparagraph two. ", 50),
		"one char":  "x",
	}
	params := []struct{ size, overlap int }{
		{1, 0}, {7, 6}, {10, 0}, {10, 3}, {50, 10}, {100, 99}, {1000, 200}, {333, 100},
	}

	for name, text := range texts {
		for _, p := range params {
			s, err := New(p.size, p.overlap)
			if err != nil {
				t.Fatalf("New(%d,%d): %v", p.size, p.overlap, err)
			}
			chunks := s.Collect(text)
			if len(chunks) == 0 {
				t.Fatalf("%s (%d,%d): no chunks", name, p.size, p.overlap)
			}

			var rebuilt strings.Builder
			for i, c := range chunks {
				rc := []rune(c)
				if len(rc) > p.size {
					t.Errorf("%s (%d,%d): chunk %d has %d runes", name, p.size, p.overlap, i, len(rc))
				}
				if i == 0 {
					rebuilt.WriteString(c)
					continue
				}
				prev := []rune(chunks[i-1])
				if len(prev) < p.overlap || len(rc) < p.overlap {
					t.Fatalf("%s (%d,%d): chunk %d shorter than overlap", name, p.size, p.overlap, i)
				}
				if string(prev[len(prev)-p.overlap:]) != string(rc[:p.overlap]) {
					t.Errorf("%s (%d,%d): chunks %d/%d do not overlap by %d runes", name, p.size, p.overlap, i-1, i, p.overlap)
				}
				rebuilt.WriteString(string(rc[p.overlap:]))
			}
			if rebuilt.String() != text {
				t.Errorf("%s (%d,%d): round trip mismatch", name, p.size, p.overlap)
			}
		}
	}
}

func TestSplit_RestartableAndStoppable(t *testing.T) {
	t.Parallel()

	s, _ := New(10, 2)
	text := strings.Repeat("word ", 30)
	seq := s.Split(text)

	var first, second []string
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	if !slices.Equal(first, second) {
		t.Error("second iteration differs from the first")
	}

	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("early break: got %d iterations", n)
	}
}
