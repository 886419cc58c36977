package domain

// Modality identifies an independent embedding space and its ranked result set.
type Modality string

// Known modalities. Text is the primary modality; image is secondary and
// loses metadata collisions during fusion.
const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// IsValid returns true if the modality is recognised.
func (m Modality) IsValid() bool {
	return m == ModalityText || m == ModalityImage
}

// OrDefault returns ModalityText for the zero value.
func (m Modality) OrDefault() Modality {
	if m == "" {
		return ModalityText
	}
	return m
}

// String returns the string representation.
func (m Modality) String() string {
	return string(m)
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of fused results.
	Limit int

	// Strategy overrides the configured fusion strategy when set.
	Strategy FusionStrategy

	// Modalities restricts the query to the listed modalities.
	// Empty means every configured modality.
	Modalities []Modality
}

// SearchResult represents a single fused search hit.
type SearchResult struct {
	// Document is the matched document.
	Document Document

	// Chunk is the specific chunk that matched.
	Chunk Chunk

	// Score is the fused relevance score.
	Score float64

	// Modalities lists the modalities that returned this chunk.
	Modalities []Modality

	// Highlights are sentences of the chunk containing query terms.
	Highlights []string
}
