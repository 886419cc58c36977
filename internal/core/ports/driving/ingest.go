package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestService indexes documents for search.
type IngestService interface {
	// IngestRaw normalises raw bytes and indexes the resulting document.
	IngestRaw(ctx context.Context, raw *domain.RawDocument) (*IngestResult, error)

	// Preview normalises raw and runs the pipeline without storing or
	// indexing anything. It returns the normalised document and its chunks.
	Preview(ctx context.Context, raw *domain.RawDocument) (*domain.Document, []domain.Chunk, error)

	// Ingest segments, embeds and indexes a normalised document. A document
	// with the same ID replaces the previous version.
	Ingest(ctx context.Context, doc *domain.Document) (*IngestResult, error)

	// Delete removes a document, its chunks and their vectors.
	Delete(ctx context.Context, documentID string) error

	// DeleteURI removes the document ingested from uri.
	DeleteURI(ctx context.Context, uri string) error

	// Reload rebuilds the vector indexes from the document store.
	Reload(ctx context.Context) (int, error)
}

// IngestResult summarises one indexed document.
type IngestResult struct {
	// Document is the stored document.
	Document domain.Document

	// Chunks is the number of chunks produced.
	Chunks int

	// Oversized is the number of chunks above the max token bound.
	Oversized int
}
