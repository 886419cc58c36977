package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// PostProcessor turns a document into chunks or refines existing chunks.
// Processors are chained in a pipeline: segmentation creates chunks from
// nil, embedding fills their vectors.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and the chunks produced so far.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// A failing processor fails the whole run; no partial chunks are returned.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
