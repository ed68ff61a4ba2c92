// Package ingestion implements the document ingestion pipeline. It extracts
// text from an uploaded file, chunks it, embeds every chunk, registers the
// document and writes the chunk records to the vector store in one batch.
// It is used by the `askpdf ingest` command and the upload endpoint.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/54b3r/askpdf-go/internal/chunker"
	"github.com/54b3r/askpdf-go/internal/logging"
	"github.com/54b3r/askpdf-go/internal/rag"
	"github.com/54b3r/askpdf-go/internal/store"
)

// ErrEmptyDocument is returned when a document contains no text to index.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// Stage names the pipeline step a failure happened in.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageChunk    Stage = "chunk"
	StageEmbed    Stage = "embed"
	StageRegister Stage = "register"
	StageStore    Stage = "store"
)

// StageError wraps a pipeline failure with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingestion: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters consecutive chunks share.
	// Defaults to 200 if zero.
	ChunkOverlap int

	// EmbedConcurrency caps in-flight embedding calls.
	// Defaults to 1 (sequential) if zero.
	EmbedConcurrency int

	// EmbedRPS limits embedding calls per second. Zero means unlimited.
	EmbedRPS float64

	// Source is the metadata source tag written on every record.
	// Defaults to "uploaded-pdf" if empty.
	Source string
}

// Result describes a successfully ingested document.
type Result struct {
	// Document is the registry entry created for the upload.
	Document store.Document
	// ChunkCount is the number of records written.
	ChunkCount int
}

// Pipeline orchestrates the chunk → embed → register → store flow.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// vectors persists the embedded chunks.
	vectors rag.VectorStore

	// registry records ingested documents.
	registry store.DocumentRegistry

	// extractor turns files into text for IngestFile.
	extractor Extractor

	// limiter throttles embedding calls; nil means unlimited.
	limiter *rate.Limiter

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// now stamps registry entries.
	now func() time.Time
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
// A nil extractor uses NewFileExtractor(nil).
func NewPipeline(embedder rag.Embedder, vectors rag.VectorStore, registry store.DocumentRegistry, extractor Extractor, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if vectors == nil {
		return nil, fmt.Errorf("ingestion: vector store must not be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("ingestion: document registry must not be nil")
	}
	if extractor == nil {
		extractor = NewFileExtractor(nil)
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = chunker.DefaultChunkOverlap
		if cfg.ChunkOverlap >= cfg.ChunkSize {
			cfg.ChunkOverlap = cfg.ChunkSize / 5
		}
	}
	if err := chunker.Validate(cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 1
	}
	if cfg.Source == "" {
		cfg.Source = rag.DefaultSource
	}

	p := &Pipeline{
		embedder:  embedder,
		vectors:   vectors,
		registry:  registry,
		extractor: extractor,
		cfg:       cfg,
		now:       time.Now,
	}
	if cfg.EmbedRPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRPS), max(1, int(cfg.EmbedRPS)))
	}
	return p, nil
}

// IngestFile extracts the text of the file at path and ingests it under
// displayName (the file's base name when empty).
func (p *Pipeline) IngestFile(ctx context.Context, path, displayName string) (*Result, error) {
	if displayName == "" {
		displayName = path
	}
	displayName = DisplayName(displayName)

	text, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Err: err}
	}
	return p.Ingest(ctx, text, displayName)
}

// Ingest chunks rawText, embeds every chunk, registers the document and
// stores its records. Nothing is registered or stored unless every chunk was
// embedded, and a failed store write removes the registry entry again, so a
// failed ingestion never leaves a retrievable partial document.
func (p *Pipeline) Ingest(ctx context.Context, rawText, displayName string) (*Result, error) {
	log := logging.FromContext(ctx)

	if strings.TrimSpace(rawText) == "" {
		return nil, &StageError{Stage: StageChunk, Err: ErrEmptyDocument}
	}

	chunks, err := chunker.Split(rawText, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return nil, &StageError{Stage: StageChunk, Err: err}
	}
	log.Debug("ingestion: chunked document",
		slog.String("name", displayName),
		slog.Int("chunks", len(chunks)),
	)

	vectors, err := p.embedAll(ctx, chunks)
	if err != nil {
		return nil, &StageError{Stage: StageEmbed, Err: err}
	}

	doc := store.Document{
		ID:          "doc-" + uuid.NewString(),
		DisplayName: DisplayName(displayName),
		ChunkCount:  len(chunks),
		UploadedAt:  p.now().UTC(),
	}
	if err := p.registry.Add(ctx, doc); err != nil {
		return nil, &StageError{Stage: StageRegister, Err: err}
	}

	records := make([]rag.Record, len(chunks))
	for i, text := range chunks {
		records[i] = rag.Record{
			ID:     chunkID(i, doc.ID),
			Vector: vectors[i],
			Text:   text,
			Metadata: rag.Metadata{
				Source:     p.cfg.Source,
				DocumentID: doc.ID,
			},
		}
	}

	if err := p.vectors.AddRecords(ctx, records, doc.ID); err != nil {
		// Use a fresh context so a cancelled request still rolls back.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rbErr := p.registry.Remove(rbCtx, doc.ID); rbErr != nil {
			log.Error("ingestion: rollback of registry entry failed",
				slog.String("document_id", doc.ID),
				slog.String("error", rbErr.Error()),
			)
		}
		return nil, &StageError{Stage: StageStore, Err: err}
	}

	log.Info("ingestion: document indexed",
		slog.String("document_id", doc.ID),
		slog.String("name", doc.DisplayName),
		slog.Int("chunks", len(chunks)),
	)
	return &Result{Document: doc, ChunkCount: len(chunks)}, nil
}

// embedAll embeds every chunk, one call per chunk, with at most
// EmbedConcurrency calls in flight. The first failure cancels the rest.
func (p *Pipeline) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.EmbedConcurrency)
	for i, text := range chunks {
		g.Go(func() error {
			if p.limiter != nil {
				if err := p.limiter.Wait(gctx); err != nil {
					return fmt.Errorf("chunk %d: %w", i, err)
				}
			}
			v, err := rag.EmbedOne(gctx, p.embedder, text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("chunk %d: %w: dimension %d differs from %d", i, rag.ErrEmbedding, len(v), dims)
		}
	}
	return vectors, nil
}

// chunkID is unique across documents because documentID is.
func chunkID(index int, documentID string) string {
	return fmt.Sprintf("chunk-%d-%s", index, documentID)
}
