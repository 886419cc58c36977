package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentStore is the system of record for normalised documents and the
// chunks cut from them. Vector indexes hold only chunk IDs and embeddings;
// search hydrates hits through GetChunk and GetDocument.
//
// Lookups of unknown IDs return domain.ErrNotFound.
type DocumentStore interface {
	// SaveDocument upserts doc keyed by its ID.
	SaveDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes the document together with its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// SaveChunks swaps out the full chunk set of each document referenced
	// by chunks, so re-ingesting a shorter document leaves no stale tail.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunks returns a document's chunks in position order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)
}
