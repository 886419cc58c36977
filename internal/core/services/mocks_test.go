package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var errBoom = errors.New("boom")

// fakePipeline splits content on "|" into chunks with unique IDs and a
// one-hot text vector per chunk.
type fakePipeline struct {
	mu    sync.Mutex
	seq   int
	err   error
	image bool
}

func (p *fakePipeline) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var chunks []domain.Chunk
	for i, part := range strings.Split(doc.Content, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p.seq++
		c := domain.Chunk{
			ID:        fmt.Sprintf("chunk-%d", p.seq),
			Content:   part,
			Position:  i,
			Tokens:    len(strings.Fields(part)),
			Oversized: strings.HasPrefix(part, "HUGE"),
			Embedding: []float32{1, float32(i)},
		}
		if p.image {
			c.ImageEmbedding = []float32{float32(i), 1}
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// fakeEmbedder maps known queries to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
	mu      sync.Mutex
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int              { return 2 }
func (e *fakeEmbedder) ModelName() string            { return "fake" }
func (e *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (e *fakeEmbedder) Close() error                 { return nil }

// stubIndex returns fixed hits, or fails on Add after a number of calls.
type stubIndex struct {
	*memory.VectorIndex
	hits      []driven.VectorHit
	searchErr error
	failAfter int
	adds      int
}

func newStubIndex() *stubIndex {
	return &stubIndex{VectorIndex: memory.NewVectorIndex(0), failAfter: -1}
}

func (s *stubIndex) Add(ctx context.Context, id string, v []float32) error {
	if s.failAfter >= 0 && s.adds >= s.failAfter {
		return errBoom
	}
	s.adds++
	return s.VectorIndex.Add(ctx, id, v)
}

func (s *stubIndex) Search(ctx context.Context, q []float32, k int) ([]driven.VectorHit, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if s.hits != nil {
		return s.hits, nil
	}
	return s.VectorIndex.Search(ctx, q, k)
}

// failingChunkStore fails SaveChunks.
type failingChunkStore struct {
	*memory.DocumentStore
}

func (f failingChunkStore) SaveChunks(_ context.Context, _ []domain.Chunk) error {
	return errBoom
}

// stubRegistry turns raw bytes into a text document.
type stubRegistry struct {
	err error
}

func (r stubRegistry) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Document{URI: raw.URI, Title: "raw", Content: string(raw.Content)}, nil
}

func (stubRegistry) Register(_ driven.Normaliser)  {}
func (stubRegistry) SupportedMIMETypes() []string { return []string{"*"} }
