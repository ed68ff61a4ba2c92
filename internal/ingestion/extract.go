package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/54b3r/askpdf-go/internal/rag"
)

// Format identifies how a file's text is obtained.
type Format string

const (
	// FormatPDF is extracted with the pdftotext command (poppler-utils).
	FormatPDF Format = "pdf"
	// FormatText is plain text or Markdown read as-is.
	FormatText Format = "text"
	// FormatUnknown is rejected by the extractor.
	FormatUnknown Format = ""
)

// ErrPDFToolNotFound is returned when pdftotext is not on PATH.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH; install poppler-utils")

// InferFormat classifies a file by its extension.
func InferFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".txt", ".md", ".markdown", ".text":
		return FormatText
	default:
		return FormatUnknown
	}
}

// DisplayName reduces an uploaded file name to a safe base name.
func DisplayName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, base)
	if base == "." || base == "/" || base == "" {
		return "document"
	}
	return base
}

// Extractor turns a file on disk into plain text.
type Extractor interface {
	// Extract returns the text content of the file at path.
	Extract(ctx context.Context, path string) (string, error)
}

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

// Run executes name with args and returns stdout. Stderr is folded into the
// error on failure.
func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// FileExtractor implements Extractor for PDF and plain-text files.
type FileExtractor struct {
	// runner executes pdftotext.
	runner CommandRunner
	// lookPath resolves the pdftotext binary.
	lookPath func(string) (string, error)
}

// NewFileExtractor returns an extractor that shells out to pdftotext. A nil
// runner uses os/exec.
func NewFileExtractor(runner CommandRunner) *FileExtractor {
	if runner == nil {
		runner = execRunner{}
	}
	return &FileExtractor{runner: runner, lookPath: exec.LookPath}
}

// Extract returns the sanitised text of the file at path. Every failure wraps
// rag.ErrExtraction.
func (x *FileExtractor) Extract(ctx context.Context, path string) (string, error) {
	switch InferFormat(path) {
	case FormatPDF:
		bin, err := x.lookPath("pdftotext")
		if err != nil {
			return "", fmt.Errorf("ingestion: %w: %w", rag.ErrExtraction, ErrPDFToolNotFound)
		}
		// "-" writes to stdout; -layout keeps columns readable.
		out, err := x.runner.Run(ctx, bin, "-layout", "-enc", "UTF-8", path, "-")
		if err != nil {
			return "", fmt.Errorf("ingestion: %w: %w", rag.ErrExtraction, err)
		}
		return sanitizeUTF8(string(out)), nil

	case FormatText:
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("ingestion: %w: %w", rag.ErrExtraction, err)
		}
		return sanitizeUTF8(string(raw)), nil

	default:
		return "", fmt.Errorf("ingestion: %w: unsupported file type %q", rag.ErrExtraction, filepath.Ext(path))
	}
}

// sanitizeUTF8 drops invalid byte sequences and NUL characters, which some
// PDF producers emit and which JSON and SQLite both reject.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) && !strings.ContainsRune(s, 0) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				continue
			}
		}
		if r == 0 {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
