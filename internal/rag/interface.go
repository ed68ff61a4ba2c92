// Package rag defines the retrieval building blocks: embedding records, the
// vector store contract and its two backends (Qdrant and a local JSON file),
// the fallback strategy that switches between them, and the retriever used
// at query time.
package rag

import (
	"context"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "pdf-rag-collection"

// DefaultSource is the metadata source tag attached to ingested chunks.
const DefaultSource = "uploaded-pdf"

// Metadata is the per-record tag stored next to every vector.
type Metadata struct {
	// Source identifies how the text entered the system (e.g. "uploaded-pdf").
	Source string `json:"source"`

	// DocumentID ties the record to the registry document it was cut from.
	DocumentID string `json:"documentId,omitempty"`
}

// Record is one embedded chunk as persisted in a vector store.
type Record struct {
	// ID is unique within a collection.
	ID string `json:"id"`

	// Vector is the embedding of Text.
	Vector []float32 `json:"embedding"`

	// Text is the chunk content returned to callers on retrieval.
	Text string `json:"document"`

	// Metadata carries the source tag and owning document id.
	Metadata Metadata `json:"metadata"`
}

// QueryResult holds parallel slices ranked by descending similarity. Entry i
// of every slice describes the same record.
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []Metadata
	Scores    []float32
}

// Len returns the number of hits in the result.
func (r *QueryResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.IDs)
}

// append adds one hit to the result.
func (r *QueryResult) append(id, text string, meta Metadata, score float32) {
	r.IDs = append(r.IDs, id)
	r.Documents = append(r.Documents, text)
	r.Metadatas = append(r.Metadatas, meta)
	r.Scores = append(r.Scores, score)
}

// VectorStore persists embedding records and answers nearest-neighbour
// queries. Every backend honours the same contract so callers never know
// which one is active. Implementations must be safe to call from multiple
// goroutines.
type VectorStore interface {
	// AddRecords appends records to the collection. documentID, when not
	// empty, overrides the DocumentID of every record's metadata.
	AddRecords(ctx context.Context, records []Record, documentID string) error

	// Query returns at most k records ranked by descending cosine
	// similarity to vector. A non-empty documentID restricts candidates to
	// records of that document.
	Query(ctx context.Context, vector []float32, k int, documentID string) (*QueryResult, error)

	// Clear removes every record from the collection.
	Clear(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever fetches the chunks relevant to a question.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns up to topK chunks for query, optionally restricted to
	// one document.
	Retrieve(ctx context.Context, query string, topK int, documentID string) (*QueryResult, error)
}
