package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/54b3r/askpdf-go/internal/rag"
)

func TestSplit_Counts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
		want    int
	}{
		{name: "empty", length: 0, size: 1000, overlap: 200, want: 0},
		{name: "shorter than window", length: 500, size: 1000, overlap: 200, want: 1},
		{name: "exactly one window", length: 1000, size: 1000, overlap: 200, want: 2},
		{name: "1500 chars", length: 1500, size: 1000, overlap: 200, want: 2},
		{name: "1700 chars", length: 1700, size: 1000, overlap: 200, want: 3},
		{name: "no overlap", length: 30, size: 10, overlap: 0, want: 3},
		{name: "max overlap", length: 5, size: 3, overlap: 2, want: 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Split(strings.Repeat("a", tc.length), tc.size, tc.overlap)
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			if len(got) != tc.want {
				t.Errorf("len(Split) = %d, want %d", len(got), tc.want)
			}
			if c := Count(tc.length, tc.size, tc.overlap); c != tc.want {
				t.Errorf("Count = %d, want %d", c, tc.want)
			}
		})
	}
}

func TestSplit_1500Chars(t *testing.T) {
	t.Parallel()
	got, err := Split(strings.Repeat("A", 1500), DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(got))
	}
	if n := len(got[0]); n != 1000 {
		t.Errorf("chunk 0 length = %d, want 1000", n)
	}
	if n := len(got[1]); n != 700 {
		t.Errorf("chunk 1 length = %d, want 700", n)
	}
}

func TestSplit_WindowsAndReconstruction(t *testing.T) {
	t.Parallel()
	text := "The quick brown fox jumps over the lazy dog. Pack my box with five dozen liquor jugs."
	const size, overlap = 12, 4

	chunks, err := Split(text, size, overlap)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	step := size - overlap
	for i, c := range chunks {
		start := i * step
		end := min(start+size, len(text))
		if c != text[start:end] {
			t.Errorf("chunk %d = %q, want %q", i, c, text[start:end])
		}
		if len(c) > size {
			t.Errorf("chunk %d longer than %d", i, size)
		}
	}

	// Consecutive chunks share exactly overlap characters, so dropping the
	// overlap prefix from every chunk but the first rebuilds the text.
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		if len(c) > overlap {
			b.WriteString(c[overlap:])
		}
	}
	if b.String() != text {
		t.Errorf("reconstruction mismatch:\n got %q\nwant %q", b.String(), text)
	}
}

func TestSplit_MultiByte(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("日本語テキスト", 50)
	chunks, err := Split(text, 100, 20)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(c); n > 100 {
			t.Errorf("chunk %d has %d runes, want <= 100", i, n)
		}
	}
	if want := Count(utf8.RuneCountInString(text), 100, 20); len(chunks) != want {
		t.Errorf("got %d chunks, want %d", len(chunks), want)
	}
}

func TestSplit_AstralPlaneCountsRunes(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("\U0001F600", 10)
	chunks, err := Split(text, 4, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if want := strings.Repeat("\U0001F600", 4); chunks[0] != want {
		t.Errorf("chunk 0 = %q, want four emoji", chunks[0])
	}
}

func TestSplit_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{name: "overlap equals size", size: 100, overlap: 100},
		{name: "overlap exceeds size", size: 100, overlap: 150},
		{name: "zero size", size: 0, overlap: 0},
		{name: "negative size", size: -5, overlap: 0},
		{name: "negative overlap", size: 100, overlap: -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Split("some text", tc.size, tc.overlap)
			if !errors.Is(err, rag.ErrInvalidConfiguration) {
				t.Errorf("want ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}
