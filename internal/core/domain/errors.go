package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSettings indicates a configuration value is out of range.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrUnsupportedType indicates an unknown normaliser, processor or provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Collaborator faults. A segmentation or fusion call that hits one of
	// these fails as a whole and returns no partial output.

	// ErrEmbedding indicates the embedding generator failed or returned
	// a vector count that does not match its input.
	ErrEmbedding = errors.New("embedding failed")

	// ErrTokenEstimation indicates the token estimator failed.
	ErrTokenEstimation = errors.New("token estimation failed")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector/semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)
