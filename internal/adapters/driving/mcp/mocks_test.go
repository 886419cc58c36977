package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	opts    domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.opts = opts
	return m.results, m.err
}

// mockSegmentService is a mock implementation of driving.SegmentService.
type mockSegmentService struct {
	chunks []domain.Chunk
	err    error
	opts   driving.SegmentOptions
}

func (m *mockSegmentService) Segment(_ context.Context, _ string, opts driving.SegmentOptions) ([]domain.Chunk, error) {
	m.opts = opts
	return m.chunks, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	result *driving.IngestResult
	raw    *domain.RawDocument
	err    error
}

func (m *mockIngestService) IngestRaw(_ context.Context, raw *domain.RawDocument) (*driving.IngestResult, error) {
	m.raw = raw
	return m.result, m.err
}

func (m *mockIngestService) Preview(_ context.Context, _ *domain.RawDocument) (*domain.Document, []domain.Chunk, error) {
	return nil, nil, m.err
}

func (m *mockIngestService) Ingest(_ context.Context, _ *domain.Document) (*driving.IngestResult, error) {
	return m.result, m.err
}

func (m *mockIngestService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIngestService) DeleteURI(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIngestService) Reload(_ context.Context) (int, error) {
	return 0, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	chunks    []domain.Chunk
	content   string
	details   *driving.DocumentDetails
	err       error
	lastID    string
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	m.lastID = id
	return m.document, m.err
}

func (m *mockDocumentService) GetChunks(_ context.Context, id string) ([]domain.Chunk, error) {
	m.lastID = id
	return m.chunks, m.err
}

func (m *mockDocumentService) GetContent(_ context.Context, id string) (string, error) {
	m.lastID = id
	return m.content, m.err
}

func (m *mockDocumentService) GetDetails(_ context.Context, id string) (*driving.DocumentDetails, error) {
	m.lastID = id
	return m.details, m.err
}
