package domain

import "time"

// Document represents a normalised document with metadata.
// It is the canonical representation before segmentation.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title is the human-readable title.
	Title string

	// Modality selects the embedding space the document is indexed in.
	// Text documents are segmented; image documents are embedded whole
	// from their caption/description in Content.
	Modality Modality

	// Content is the full text content after normalisation.
	Content string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was first indexed.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// Chunk represents a searchable unit within a document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// SentenceCount is the number of sentences the chunk was built from.
	SentenceCount int

	// Tokens is the estimated token count of Content.
	Tokens int

	// Oversized marks a chunk that exceeds the max token bound because
	// no valid split point existed.
	Oversized bool

	// Embedding is the text-modality vector.
	Embedding []float32

	// ImageEmbedding is the image-modality vector, set only when an image
	// embedder is configured.
	ImageEmbedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// Vector returns the chunk's embedding in the given modality.
func (c *Chunk) Vector(m Modality) []float32 {
	if m == ModalityImage {
		return c.ImageEmbedding
	}
	return c.Embedding
}

// CloneMetadata returns a shallow copy of m, or nil when m is empty.
func CloneMetadata(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	dst := make(map[string]any, len(m))
	for k, v := range m {
		dst[k] = v
	}
	return dst
}
