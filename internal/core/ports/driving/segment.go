package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SegmentService splits text into semantic chunks without indexing them.
type SegmentService interface {
	// Segment returns the chunks of text in order. Chunk IDs are empty.
	Segment(ctx context.Context, text string, opts SegmentOptions) ([]domain.Chunk, error)
}

// SegmentOptions overrides the configured segmentation for one call.
type SegmentOptions struct {
	// Settings replaces the configured settings when non-nil.
	Settings *domain.SegmentationSettings

	// Splitter names the sentence splitter: auto, unicode or regex.
	Splitter string
}
