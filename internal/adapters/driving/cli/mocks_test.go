package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var errMock = errors.New("mock failure")

// setupTestServices installs mock services and returns a cleanup function
// that clears them and resets every flag.
func setupTestServices() func() {
	SetServices(&Services{
		Search:    &mockSearchService{},
		Ingest:    &mockIngestService{},
		Documents: &mockDocumentService{},
		Segments:  &mockSegmentService{},
		Settings:  newMockSettingsService(),
		Validator: &mockValidator{},
		SupportedTypes: func() []string {
			return []string{"text/markdown", "text/plain"}
		},
	})
	return func() {
		SetServices(nil)
		resetFlags(rootCmd)
	}
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// mockSearchService returns a single fused result.
type mockSearchService struct {
	query string
	opts  domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.query = query
	m.opts = opts
	return []domain.SearchResult{
		{
			Document: domain.Document{
				ID:    "doc-1",
				Title: "Test Document 1",
				URI:   "/notes/test.md",
			},
			Chunk: domain.Chunk{
				ID:       "doc-1#0",
				Content:  "Cats purr when content.\nSecond line.",
				Position: 0,
			},
			Score:      0.87,
			Modalities: []domain.Modality{domain.ModalityText, domain.ModalityImage},
			Highlights: []string{"Cats purr when content."},
		},
	}, nil
}

type mockSearchServiceError struct{}

func (m *mockSearchServiceError) Search(_ context.Context, _ string, _ domain.SearchOptions) ([]domain.SearchResult, error) {
	return nil, errMock
}

// mockIngestService records what it was asked to index.
type mockIngestService struct {
	mu       sync.Mutex
	ingested []string
	deleted  []string
	failURI  string
}

func (m *mockIngestService) IngestRaw(_ context.Context, raw *domain.RawDocument) (*driving.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failURI != "" && strings.HasSuffix(raw.URI, m.failURI) {
		return nil, errMock
	}
	m.ingested = append(m.ingested, raw.URI)
	return &driving.IngestResult{
		Document: domain.Document{ID: "id-" + raw.URI, URI: raw.URI},
		Chunks:   2,
	}, nil
}

func (m *mockIngestService) Preview(_ context.Context, raw *domain.RawDocument) (*domain.Document, []domain.Chunk, error) {
	doc := &domain.Document{URI: raw.URI, Modality: domain.ModalityText}
	return doc, []domain.Chunk{{Content: "a"}, {Content: "b"}, {Content: "c", Oversized: true}}, nil
}

func (m *mockIngestService) Ingest(_ context.Context, doc *domain.Document) (*driving.IngestResult, error) {
	return &driving.IngestResult{Document: *doc, Chunks: 1}, nil
}

func (m *mockIngestService) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "missing" {
		return domain.ErrNotFound
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockIngestService) DeleteURI(ctx context.Context, uri string) error {
	return m.Delete(ctx, "id-"+uri)
}

func (m *mockIngestService) Reload(_ context.Context) (int, error) {
	return 0, nil
}

func (m *mockIngestService) ingestedURIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ingested...)
}

// mockDocumentService serves two fixed documents.
type mockDocumentService struct{}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return []domain.Document{
		{ID: "doc-1", Title: "Test Document 1", URI: "/notes/one.md"},
		{ID: "doc-2", Title: "Test Document 2", URI: "/notes/two.md"},
	}, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if id != "doc-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.Document{
		ID:        "doc-1",
		Title:     "Test Document 1",
		URI:       "/notes/one.md",
		Metadata:  map[string]any{"mime_type": "text/markdown"},
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}, nil
}

func (m *mockDocumentService) GetChunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return []domain.Chunk{
		{ID: "doc-1#0", Position: 0, Tokens: 7, Content: "First chunk."},
		{ID: "doc-1#1", Position: 1, Tokens: 9, Content: "Second chunk."},
	}, nil
}

func (m *mockDocumentService) GetContent(_ context.Context, _ string) (string, error) {
	return "Test content for document", nil
}

func (m *mockDocumentService) GetDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return &driving.DocumentDetails{
		ID:         "doc-1",
		Title:      "Test Document 1",
		URI:        "/notes/one.md",
		Modality:   domain.ModalityText,
		ChunkCount: 2,
		Tokens:     16,
		CreatedAt:  testTime,
		UpdatedAt:  testTime,
		Metadata:   map[string]string{"mime_type": "text/markdown"},
	}, nil
}

type mockDocumentServiceError struct{}

func (m *mockDocumentServiceError) List(_ context.Context) ([]domain.Document, error) {
	return nil, errMock
}

func (m *mockDocumentServiceError) Get(_ context.Context, _ string) (*domain.Document, error) {
	return nil, errMock
}

func (m *mockDocumentServiceError) GetChunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return nil, errMock
}

func (m *mockDocumentServiceError) GetContent(_ context.Context, _ string) (string, error) {
	return "", errMock
}

func (m *mockDocumentServiceError) GetDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return nil, errMock
}

// mockSegmentService splits on blank lines and records its options.
type mockSegmentService struct {
	text string
	opts driving.SegmentOptions
}

func (m *mockSegmentService) Segment(_ context.Context, text string, opts driving.SegmentOptions) ([]domain.Chunk, error) {
	m.text = text
	m.opts = opts
	var chunks []domain.Chunk
	for i, part := range strings.Split(strings.TrimSpace(text), "\n\n") {
		chunks = append(chunks, domain.Chunk{
			Position:      i,
			Content:       part,
			Tokens:        len(strings.Fields(part)),
			SentenceCount: 1,
		})
	}
	return chunks, nil
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings domain.AppSettings
	saved    int
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	m.settings = *settings
	m.saved++
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(modality domain.Modality, provider domain.AIProvider, model, apiKey string) error {
	e := domain.EmbeddingSettings{Provider: provider, Model: model, APIKey: apiKey}
	if modality == domain.ModalityImage {
		m.settings.ImageEmbedding = e
	} else {
		m.settings.Embedding = e
	}
	m.saved++
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) Validate() error {
	return m.settings.Validate()
}

// mockValidator fails for the providers listed in fail.
type mockValidator struct {
	fail map[domain.AIProvider]bool
}

func (m *mockValidator) ValidateEmbedding(_ context.Context, cfg *domain.EmbeddingSettings) error {
	if m.fail[cfg.Provider] {
		return domain.ErrEmbeddingUnavailable
	}
	return nil
}
