package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/fusion"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/segment"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Metadata keys added to every scored item before fusion.
const (
	MetaDocumentID = "document_id"
	MetaTitle      = "title"
	MetaURI        = "uri"
)

const (
	fallbackLimit  = 10
	maxHighlights  = 3
	highlightRunes = 200
)

// modalityOrder fixes primary (text) and secondary (image) roles in fusion.
var modalityOrder = []domain.Modality{domain.ModalityText, domain.ModalityImage}

// SearchService provides fused multi-modal search.
type SearchService struct {
	docStore     driven.DocumentStore
	embedders    map[domain.Modality]driven.EmbeddingService
	indexes      map[domain.Modality]driven.VectorIndex
	settings     domain.FusionSettings
	defaultLimit int
	splitter     segment.SentenceSplitter
}

// NewSearchService creates a new search service. A modality is searchable
// when it has both an embedder and an index. splitter cuts highlight
// sentences; nil probes for a strategy once here.
func NewSearchService(
	docStore driven.DocumentStore,
	embedders map[domain.Modality]driven.EmbeddingService,
	indexes map[domain.Modality]driven.VectorIndex,
	settings domain.FusionSettings,
	defaultLimit int,
	splitter segment.SentenceSplitter,
) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = fallbackLimit
	}
	if splitter == nil {
		splitter = segment.DetectSplitter()
	}
	return &SearchService{
		docStore:     docStore,
		embedders:    embedders,
		indexes:      indexes,
		settings:     settings,
		defaultLimit: defaultLimit,
		splitter:     splitter,
	}
}

// candidate is a vector hit resolved against the document store.
type candidate struct {
	chunk domain.Chunk
	doc   *domain.Document
}

// Search embeds the query per modality, searches each modality's index
// concurrently and fuses the ranked lists.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	// Request more results per modality so fusion has overlap to work with.
	internalLimit := limit * 2

	modalities, err := s.searchable(opts.Modalities)
	if err != nil {
		return nil, err
	}
	logger.Debug("Limit: %d, modalities: %v", limit, modalities)

	hits := make(map[domain.Modality][]driven.VectorHit, len(modalities))
	lists := make([][]driven.VectorHit, len(modalities))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range modalities {
		g.Go(func() error {
			res, err := s.searchModality(gctx, m, query, internalLimit)
			if err != nil {
				return fmt.Errorf("%s search: %w", m, err)
			}
			lists[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("Search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}
	for i, m := range modalities {
		hits[m] = lists[i]
	}

	resolved := make(map[string]candidate)
	scored := make(map[domain.Modality][]fusion.ScoredItem, len(hits))
	for m, list := range hits {
		items, err := s.resolve(ctx, list, resolved)
		if err != nil {
			return nil, fmt.Errorf("hydrate results: %w", err)
		}
		scored[m] = items
		logger.Debug("%s: %d hits", m, len(items))
	}

	fused, err := s.fuse(scored[domain.ModalityText], scored[domain.ModalityImage], opts.Strategy, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(fused))
	for _, r := range fused {
		c := resolved[r.ID]
		results = append(results, domain.SearchResult{
			Document:   *c.doc,
			Chunk:      c.chunk,
			Score:      r.Score,
			Modalities: matchedModalities(r.ID, scored),
			Highlights: s.generateHighlights(c.chunk.Content, query),
		})
	}

	logger.Info("Final results: %d", len(results))
	return results, nil
}

// searchable filters the requested modalities to those that are configured.
func (s *SearchService) searchable(requested []domain.Modality) ([]domain.Modality, error) {
	if len(requested) == 0 {
		requested = modalityOrder
	}
	for _, m := range requested {
		if !m.IsValid() {
			return nil, fmt.Errorf("search: %w: unknown modality %q", domain.ErrInvalidInput, m)
		}
	}
	var out []domain.Modality
	for _, m := range modalityOrder {
		if !containsModality(requested, m) {
			continue
		}
		if s.embedders[m] == nil || s.indexes[m] == nil {
			logger.Debug("Modality %s not configured, treated as empty", m)
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("search: %w", domain.ErrEmbeddingUnavailable)
	}
	return out, nil
}

func (s *SearchService) searchModality(
	ctx context.Context, m domain.Modality, query string, k int,
) ([]driven.VectorHit, error) {
	embedding, err := s.embedders[m].Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("generate query embedding: %w: %w", domain.ErrEmbedding, err)
	}
	logger.Debug("%s query embedding: %d dimensions", m, len(embedding))

	hits, err := s.indexes[m].Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

// resolve loads the chunks and documents behind hits. Hits whose chunk or
// document has since been deleted are skipped.
func (s *SearchService) resolve(
	ctx context.Context, hits []driven.VectorHit, seen map[string]candidate,
) ([]fusion.ScoredItem, error) {
	items := make([]fusion.ScoredItem, 0, len(hits))
	for _, hit := range hits {
		c, ok := seen[hit.ChunkID]
		if !ok {
			chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
			}
			doc, err := s.docStore.GetDocument(ctx, chunk.DocumentID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
			}
			c = candidate{chunk: *chunk, doc: doc}
			seen[hit.ChunkID] = c
		}

		meta := domain.CloneMetadata(c.chunk.Metadata)
		if meta == nil {
			meta = make(map[string]any, 3)
		}
		meta[MetaDocumentID] = c.doc.ID
		meta[MetaTitle] = c.doc.Title
		meta[MetaURI] = c.doc.URI
		items = append(items, fusion.ScoredItem{ID: hit.ChunkID, Score: hit.Similarity, Metadata: meta})
	}
	return items, nil
}

func (s *SearchService) fuse(
	text, image []fusion.ScoredItem, override domain.FusionStrategy, limit int,
) ([]fusion.Result, error) {
	settings := s.settings
	if override != "" {
		settings.Strategy = override
	}

	if settings.Strategy == domain.FusionWeighted || settings.Strategy == "" {
		results, weights := fusion.CombineWeights(text, image, fusion.Options{
			TopK:  settings.TopKForConfidence,
			Limit: limit,
		})
		logger.Debug("Fusion weights: text=%.3f image=%.3f", weights.Primary, weights.Secondary)
		return results, nil
	}
	logger.Debug("Fusion strategy: %s", settings.Strategy)
	return fusion.Fuse(text, image, settings, limit)
}

func matchedModalities(id string, scored map[domain.Modality][]fusion.ScoredItem) []domain.Modality {
	var out []domain.Modality
	for _, m := range modalityOrder {
		for _, item := range scored[m] {
			if item.ID == id {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func containsModality(list []domain.Modality, m domain.Modality) bool {
	for _, x := range list {
		if x == m {
			return true
		}
	}
	return false
}

// generateHighlights returns up to three sentences containing a query term.
func (s *SearchService) generateHighlights(content, query string) []string {
	queryTerms := strings.Fields(strings.ToLower(query))
	if len(queryTerms) == 0 {
		return nil
	}

	var highlights []string
	for _, sentence := range s.splitter.Split(segment.NormalizeText(content)) {
		lower := strings.ToLower(sentence.Text)
		for _, term := range queryTerms {
			if !strings.Contains(lower, term) {
				continue
			}
			highlight := sentence.Text
			if runes := []rune(highlight); len(runes) > highlightRunes {
				highlight = string(runes[:highlightRunes]) + "..."
			}
			highlights = append(highlights, highlight)
			break
		}
		if len(highlights) >= maxHighlights {
			break
		}
	}
	return highlights
}
