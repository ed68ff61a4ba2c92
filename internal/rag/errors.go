package rag

import "errors"

// Sentinel errors shared by the retrieval packages. Callers inspect them with
// errors.Is; implementations wrap them with context using %w.
var (
	// ErrInvalidConfiguration reports a configuration value that can never
	// produce a valid result, such as a chunk overlap not smaller than the
	// chunk size.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrExtraction reports that no text could be obtained from an uploaded file.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbedding reports an embedding service failure or an empty embedding.
	ErrEmbedding = errors.New("embedding failed")

	// ErrAnswerGeneration reports a failure of the answer-generation model.
	ErrAnswerGeneration = errors.New("answer generation failed")

	// ErrStoreUnavailable reports that the remote vector service could not be
	// reached. FallbackStore consumes it and switches to the local store.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)
