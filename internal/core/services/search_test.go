package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

type searchFixture struct {
	store *memory.DocumentStore
	text  *stubIndex
	image *stubIndex
}

// newSearchFixture stores doc-1 with chunks a, b, c and doc-2 with chunk d.
func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	ctx := context.Background()
	f := &searchFixture{store: memory.NewDocumentStore(), text: newStubIndex(), image: newStubIndex()}

	require.NoError(t, f.store.SaveDocument(ctx, &domain.Document{ID: "doc-1", URI: "/one", Title: "One"}))
	require.NoError(t, f.store.SaveDocument(ctx, &domain.Document{ID: "doc-2", URI: "/two", Title: "Two"}))
	require.NoError(t, f.store.SaveChunks(ctx, []domain.Chunk{
		{ID: "a", DocumentID: "doc-1", Position: 0, Content: "Cats purr. Dogs bark.", Metadata: map[string]any{"lang": "en"}},
		{ID: "b", DocumentID: "doc-1", Position: 1, Content: "Birds sing."},
		{ID: "c", DocumentID: "doc-1", Position: 2, Content: "Fish swim."},
	}))
	require.NoError(t, f.store.SaveChunks(ctx, []domain.Chunk{
		{ID: "d", DocumentID: "doc-2", Position: 0, Content: "A cat picture."},
	}))
	return f
}

func (f *searchFixture) service(fs domain.FusionSettings) *SearchService {
	embedder := &fakeEmbedder{}
	return NewSearchService(f.store,
		map[domain.Modality]driven.EmbeddingService{
			domain.ModalityText:  embedder,
			domain.ModalityImage: embedder,
		},
		map[domain.Modality]driven.VectorIndex{
			domain.ModalityText:  f.text,
			domain.ModalityImage: f.image,
		},
		fs, 10, nil)
}

func ids(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.ID
	}
	return out
}

func TestSearchService_EmptyQuery(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.service(domain.DefaultFusionSettings()).Search(context.Background(), "   ", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchService_TextOnlyPassesRawScores(t *testing.T) {
	f := newSearchFixture(t)
	f.text.hits = []driven.VectorHit{{ChunkID: "b", Similarity: 0.4}, {ChunkID: "a", Similarity: 0.9}}
	f.image.hits = []driven.VectorHit{}

	results, err := f.service(domain.DefaultFusionSettings()).Search(context.Background(), "cats", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(results))
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
	assert.Equal(t, "One", results[0].Document.Title)
	assert.Equal(t, []domain.Modality{domain.ModalityText}, results[0].Modalities)
	assert.Equal(t, []string{"Cats purr."}, results[0].Highlights)
}

func TestSearchService_HighlightsUseInjectedSplitter(t *testing.T) {
	f := newSearchFixture(t)
	f.text.hits = []driven.VectorHit{{ChunkID: "a", Similarity: 0.9}}
	splitter := &countingSplitter{}
	svc := NewSearchService(f.store,
		map[domain.Modality]driven.EmbeddingService{domain.ModalityText: &fakeEmbedder{}},
		map[domain.Modality]driven.VectorIndex{domain.ModalityText: f.text},
		domain.DefaultFusionSettings(), 10, splitter)

	results, err := svc.Search(context.Background(), "dogs", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"Dogs bark."}, results[0].Highlights)
	assert.Positive(t, splitter.calls.Load())
}

func TestSearchService_FusesModalities(t *testing.T) {
	f := newSearchFixture(t)
	f.text.hits = []driven.VectorHit{{ChunkID: "a", Similarity: 0.9}, {ChunkID: "b", Similarity: 0.5}}
	f.image.hits = []driven.VectorHit{{ChunkID: "d", Similarity: 0.8}, {ChunkID: "a", Similarity: 0.1}}

	results, err := f.service(domain.DefaultFusionSettings()).Search(context.Background(), "cat", domain.SearchOptions{Limit: 3})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, []domain.Modality{domain.ModalityText, domain.ModalityImage}, results[0].Modalities)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchService_RRFOverride(t *testing.T) {
	f := newSearchFixture(t)
	f.text.hits = []driven.VectorHit{{ChunkID: "a", Similarity: 0.9}, {ChunkID: "b", Similarity: 0.5}}
	f.image.hits = []driven.VectorHit{{ChunkID: "b", Similarity: 0.8}}

	results, err := f.service(domain.DefaultFusionSettings()).Search(context.Background(), "q",
		domain.SearchOptions{Strategy: domain.FusionRRF})

	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(results))
	assert.InDelta(t, 1.0/62+1.0/61, results[0].Score, 1e-12)
}

func TestSearchService_SkipsDeletedChunks(t *testing.T) {
	f := newSearchFixture(t)
	f.text.hits = []driven.VectorHit{{ChunkID: "ghost", Similarity: 0.99}, {ChunkID: "c", Similarity: 0.3}}
	f.image.hits = []driven.VectorHit{}

	results, err := f.service(domain.DefaultFusionSettings()).Search(context.Background(), "fish", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(results))
}

func TestSearchService_ModalityFilter(t *testing.T) {
	f := newSearchFixture(t)
	f.text.hits = []driven.VectorHit{{ChunkID: "a", Similarity: 0.9}}
	f.image.hits = []driven.VectorHit{{ChunkID: "d", Similarity: 0.8}}

	results, err := f.service(domain.DefaultFusionSettings()).Search(context.Background(), "q",
		domain.SearchOptions{Modalities: []domain.Modality{domain.ModalityImage}})

	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids(results))

	_, err = f.service(domain.DefaultFusionSettings()).Search(context.Background(), "q",
		domain.SearchOptions{Modalities: []domain.Modality{"audio"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchService_MissingImageModality(t *testing.T) {
	f := newSearchFixture(t)
	f.text.hits = []driven.VectorHit{{ChunkID: "a", Similarity: 0.7}}
	svc := NewSearchService(f.store,
		map[domain.Modality]driven.EmbeddingService{domain.ModalityText: &fakeEmbedder{}},
		map[domain.Modality]driven.VectorIndex{domain.ModalityText: f.text},
		domain.DefaultFusionSettings(), 0, nil)

	results, err := svc.Search(context.Background(), "q", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.7, results[0].Score, 1e-9)
}

func TestSearchService_NoModalityConfigured(t *testing.T) {
	svc := NewSearchService(memory.NewDocumentStore(), nil, nil, domain.DefaultFusionSettings(), 10, nil)

	_, err := svc.Search(context.Background(), "q", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSearchService_CollaboratorFailure(t *testing.T) {
	t.Run("embedding", func(t *testing.T) {
		f := newSearchFixture(t)
		svc := NewSearchService(f.store,
			map[domain.Modality]driven.EmbeddingService{domain.ModalityText: &fakeEmbedder{err: errBoom}},
			map[domain.Modality]driven.VectorIndex{domain.ModalityText: f.text},
			domain.DefaultFusionSettings(), 10, nil)

		_, err := svc.Search(context.Background(), "q", domain.SearchOptions{})

		assert.ErrorIs(t, err, domain.ErrEmbedding)
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("index", func(t *testing.T) {
		f := newSearchFixture(t)
		f.image.searchErr = errBoom

		_, err := f.service(domain.DefaultFusionSettings()).Search(context.Background(), "q", domain.SearchOptions{})

		assert.ErrorIs(t, err, errBoom)
	})
}

func TestSearchService_LimitDefaultsAndTruncates(t *testing.T) {
	f := newSearchFixture(t)
	f.text.hits = []driven.VectorHit{
		{ChunkID: "a", Similarity: 0.9}, {ChunkID: "b", Similarity: 0.8}, {ChunkID: "c", Similarity: 0.7},
	}
	f.image.hits = []driven.VectorHit{}
	svc := NewSearchService(f.store,
		map[domain.Modality]driven.EmbeddingService{domain.ModalityText: &fakeEmbedder{}},
		map[domain.Modality]driven.VectorIndex{domain.ModalityText: f.text},
		domain.DefaultFusionSettings(), 2, nil)

	results, err := svc.Search(context.Background(), "q", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(results))
}

func TestSearchService_MetadataCarriesDocument(t *testing.T) {
	f := newSearchFixture(t)
	svc := f.service(domain.DefaultFusionSettings())
	seen := make(map[string]candidate)

	items, err := svc.resolve(context.Background(), []driven.VectorHit{{ChunkID: "a", Similarity: 1}}, seen)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "doc-1", items[0].Metadata[MetaDocumentID])
	assert.Equal(t, "/one", items[0].Metadata[MetaURI])
	assert.Equal(t, "en", items[0].Metadata["lang"])
	assert.Contains(t, seen, "a")
}
