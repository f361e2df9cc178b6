package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateBookmark indicates a bookmark with the same URL already exists.
	ErrDuplicateBookmark = errors.New("duplicate bookmark")

	// ErrInvalidConfig indicates a configuration value is present but out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Classification Errors.

	// ErrContentUnavailable indicates the bookmark has no readable content.
	// Classification proceeds on partial content or yields an unclassified result.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrModelUnavailable indicates a tier's model could not be loaded or called.
	// The classifier degrades to lower tiers instead of failing.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrStorageWriteFailed indicates a classification pass could not be committed.
	// No assignment from the pass is visible when this is returned.
	ErrStorageWriteFailed = errors.New("storage write failed")

	// Retrieval Errors.

	// ErrInvalidQuery indicates a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmbeddingVersionMismatch indicates a stored embedding was produced by a
	// model version other than the active one.
	ErrEmbeddingVersionMismatch = errors.New("embedding version mismatch")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Semantic search and the lightweight tier are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// The heavyweight tier is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
