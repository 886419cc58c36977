package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DocumentID derives a stable document ID from its URI so re-ingesting the
// same file replaces the previous version.
func DocumentID(uri string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(uri)).String()
}

// IngestService segments, embeds and indexes documents.
type IngestService struct {
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	docStore driven.DocumentStore
	indexes  map[domain.Modality]driven.VectorIndex
	now      func() time.Time
}

// NewIngestService creates a new ingest service. indexes maps each enabled
// modality to its vector index; registry is only needed for IngestRaw.
func NewIngestService(
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	docStore driven.DocumentStore,
	indexes map[domain.Modality]driven.VectorIndex,
) *IngestService {
	return &IngestService{
		registry: registry,
		pipeline: pipeline,
		docStore: docStore,
		indexes:  indexes,
		now:      time.Now,
	}
}

// IngestRaw normalises raw bytes and indexes the resulting document.
func (s *IngestService) IngestRaw(ctx context.Context, raw *domain.RawDocument) (*driving.IngestResult, error) {
	doc, err := s.normalise(ctx, raw)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, doc)
}

// Preview normalises raw and runs the pipeline without side effects.
func (s *IngestService) Preview(ctx context.Context, raw *domain.RawDocument) (*domain.Document, []domain.Chunk, error) {
	doc, err := s.normalise(ctx, raw)
	if err != nil {
		return nil, nil, err
	}
	if s.pipeline == nil {
		return nil, nil, fmt.Errorf("preview: %w", domain.ErrEmbeddingUnavailable)
	}
	doc.Modality = doc.Modality.OrDefault()
	if doc.ID == "" && doc.URI != "" {
		doc.ID = DocumentID(doc.URI)
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("process %s: %w", raw.URI, err)
	}
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}
	return doc, chunks, nil
}

func (s *IngestService) normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil raw document", domain.ErrInvalidInput)
	}
	if s.registry == nil {
		return nil, fmt.Errorf("normalise %s: %w: no normaliser registry", raw.URI, domain.ErrUnsupportedType)
	}

	doc, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", raw.URI, err)
	}
	return doc, nil
}

// Ingest segments, embeds and indexes a document. Nothing is stored until
// every pipeline stage has succeeded; a failure while storing rolls back
// the vectors added so far.
//
//nolint:gocyclo // Sequential steps with rollback at each stage
func (s *IngestService) Ingest(ctx context.Context, doc *domain.Document) (*driving.IngestResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	if s.pipeline == nil {
		return nil, fmt.Errorf("ingest: %w", domain.ErrEmbeddingUnavailable)
	}

	stored := *doc
	stored.Metadata = domain.CloneMetadata(doc.Metadata)
	stored.Modality = stored.Modality.OrDefault()
	if !stored.Modality.IsValid() {
		return nil, fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidInput, stored.Modality)
	}
	if stored.ID == "" {
		if strings.TrimSpace(stored.URI) == "" {
			return nil, fmt.Errorf("%w: document needs an ID or URI", domain.ErrInvalidInput)
		}
		stored.ID = DocumentID(stored.URI)
	}

	logger.Section("Ingest")
	logger.Debug("Document %s (%s, %d bytes)", stored.ID, stored.URI, len(stored.Content))

	previous, oldChunks, err := s.current(ctx, stored.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stored.UpdatedAt = now
	switch {
	case previous != nil:
		stored.CreatedAt = previous.CreatedAt
	case stored.CreatedAt.IsZero():
		stored.CreatedAt = now
	}

	// 1. Segment and embed
	start := time.Now()
	chunks, err := s.pipeline.Process(ctx, &stored)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", stored.ID, err)
	}
	logger.Elapsed("pipeline", start)
	for i := range chunks {
		chunks[i].DocumentID = stored.ID
	}

	// 2. Index vectors under the new chunk IDs
	added, err := s.addVectors(ctx, chunks)
	if err != nil {
		s.removeVectors(ctx, added)
		return nil, fmt.Errorf("index %s: %w", stored.ID, err)
	}

	// 3. Persist
	if err := s.persist(ctx, &stored, chunks); err != nil {
		s.removeVectors(ctx, added)
		s.restore(ctx, stored.ID, previous)
		return nil, err
	}

	// 4. Drop the previous version's vectors
	s.removeVectors(ctx, chunkIDs(oldChunks))

	result := &driving.IngestResult{Document: stored, Chunks: len(chunks)}
	for _, c := range chunks {
		if c.Oversized {
			result.Oversized++
		}
	}
	logger.Info("Indexed %s: %d chunks (%d oversized)", displayName(&stored), result.Chunks, result.Oversized)
	return result, nil
}

// Delete removes a document, its chunks and their vectors.
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("get document %s: %w", documentID, err)
	}
	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get chunks %s: %w", documentID, err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	s.removeVectors(ctx, chunkIDs(chunks))
	logger.Info("Deleted document %s (%d chunks)", documentID, len(chunks))
	return nil
}

// DeleteURI removes the document ingested from uri.
func (s *IngestService) DeleteURI(ctx context.Context, uri string) error {
	return s.Delete(ctx, DocumentID(uri))
}

// Reload rebuilds the vector indexes from the document store and returns
// the number of chunks loaded.
func (s *IngestService) Reload(ctx context.Context) (int, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	start := time.Now()
	loaded := 0
	for i := range docs {
		chunks, err := s.docStore.GetChunks(ctx, docs[i].ID)
		if err != nil {
			return loaded, fmt.Errorf("get chunks %s: %w", docs[i].ID, err)
		}
		if _, err := s.addVectors(ctx, chunks); err != nil {
			return loaded, fmt.Errorf("index %s: %w", docs[i].ID, err)
		}
		loaded += len(chunks)
	}
	logger.Elapsed(fmt.Sprintf("reload of %d documents", len(docs)), start)
	return loaded, nil
}

// current returns the stored version of a document and its chunks, or nils
// when the document is new.
func (s *IngestService) current(ctx context.Context, id string) (*domain.Document, []domain.Chunk, error) {
	previous, err := s.docStore.GetDocument(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get document %s: %w", id, err)
	}
	chunks, err := s.docStore.GetChunks(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get chunks %s: %w", id, err)
	}
	return previous, chunks, nil
}

func (s *IngestService) persist(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	if len(chunks) == 0 {
		// SaveChunks with no chunks cannot clear a previous version.
		return s.clearChunks(ctx, doc)
	}
	if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks %s: %w", doc.ID, err)
	}
	return nil
}

// clearChunks drops every chunk of doc by deleting and re-saving it.
func (s *IngestService) clearChunks(ctx context.Context, doc *domain.Document) error {
	if err := s.docStore.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("clear chunks %s: %w", doc.ID, err)
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

// restore puts the previous document record back, or removes a new one.
func (s *IngestService) restore(ctx context.Context, id string, previous *domain.Document) {
	var err error
	if previous != nil {
		err = s.docStore.SaveDocument(ctx, previous)
	} else {
		err = s.docStore.DeleteDocument(ctx, id)
	}
	if err != nil {
		logger.Warn("Rollback of document %s failed: %v", id, err)
	}
}

// indexedVector identifies one vector added to one modality's index.
type indexedVector struct {
	modality domain.Modality
	chunkID  string
}

func (s *IngestService) addVectors(ctx context.Context, chunks []domain.Chunk) ([]indexedVector, error) {
	var added []indexedVector
	for i := range chunks {
		for modality, index := range s.indexes {
			vec := chunks[i].Vector(modality)
			if len(vec) == 0 {
				continue
			}
			if err := index.Add(ctx, chunks[i].ID, vec); err != nil {
				return added, fmt.Errorf("%s vector %s: %w", modality, chunks[i].ID, err)
			}
			added = append(added, indexedVector{modality: modality, chunkID: chunks[i].ID})
		}
	}
	return added, nil
}

// removeVectors deletes vectors; failures are logged, never returned.
func (s *IngestService) removeVectors(ctx context.Context, vectors []indexedVector) {
	for _, v := range vectors {
		index, ok := s.indexes[v.modality]
		if !ok {
			continue
		}
		if err := index.Delete(ctx, v.chunkID); err != nil {
			logger.Warn("Removing %s vector %s: %v", v.modality, v.chunkID, err)
		}
	}
}

// chunkIDs lists every chunk in every configured modality.
func chunkIDs(chunks []domain.Chunk) []indexedVector {
	out := make([]indexedVector, 0, len(chunks)*2)
	for _, c := range chunks {
		out = append(out,
			indexedVector{modality: domain.ModalityText, chunkID: c.ID},
			indexedVector{modality: domain.ModalityImage, chunkID: c.ID},
		)
	}
	return out
}

func displayName(doc *domain.Document) string {
	if doc.Title != "" {
		return doc.Title
	}
	if doc.URI != "" {
		return doc.URI
	}
	return doc.ID
}
