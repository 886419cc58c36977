// Package embed provides the post-processor that attaches vectors to chunks.
package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Name is the registry name of the processor.
const Name = "embed"

// DefaultBatchSize is the number of chunks embedded per request.
const DefaultBatchSize = 32

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor embeds chunk contents with the text embedder and, when
// configured, the image embedder.
type Processor struct {
	text      driven.EmbeddingService
	image     driven.EmbeddingService
	batchSize int
}

// Option configures the embed processor.
type Option func(*Processor)

// WithImageEmbedder also fills Chunk.ImageEmbedding.
func WithImageEmbedder(e driven.EmbeddingService) Option {
	return func(p *Processor) {
		p.image = e
	}
}

// WithBatchSize sets the number of chunks per embedding request.
func WithBatchSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// New creates an embed processor.
func New(text driven.EmbeddingService, opts ...Option) (*Processor, error) {
	if text == nil {
		return nil, fmt.Errorf("embed: %w", domain.ErrEmbeddingUnavailable)
	}
	p := &Processor{text: text, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Process returns a copy of chunks with their vectors set.
func (p *Processor) Process(ctx context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)

	texts := make([]string, len(out))
	for i := range out {
		texts[i] = out[i].Content
	}

	vectors, err := p.embedAll(ctx, p.text, texts)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Embedding = vectors[i]
	}

	if p.image != nil {
		vectors, err := p.embedAll(ctx, p.image, texts)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i].ImageEmbedding = vectors[i]
		}
	}
	return out, nil
}

func (p *Processor) embedAll(ctx context.Context, svc driven.EmbeddingService, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		batch, err := svc.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			if errors.Is(err, domain.ErrEmbedding) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrEmbedding, svc.ModelName(), err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: %s returned %d vectors for %d chunks",
				domain.ErrEmbedding, svc.ModelName(), len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
