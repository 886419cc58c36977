// Package semantic provides the segmentation post-processor: it splits a
// document into topically coherent, token-bounded chunks.
package semantic

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/segment"
)

// Name is the registry name of the processor.
const Name = "semantic"

// Metadata keys set on produced chunks.
const (
	MetaSentenceCount = "sentence_count"
	MetaOversized     = "oversized"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor segments text documents with a segment.Segmenter. Image
// documents are kept whole as a single chunk.
type Processor struct {
	segmenter *segment.Segmenter
	tokens    segment.TokenCounter
	newID     func() string
}

// New creates a semantic processor. opts configure the segmenter.
func New(embedder segment.Embedder, tokens segment.TokenCounter, opts ...segment.Option) (*Processor, error) {
	seg, err := segment.New(embedder, tokens, opts...)
	if err != nil {
		return nil, err
	}
	return &Processor{
		segmenter: seg,
		tokens:    tokens,
		newID:     func() string { return uuid.New().String() },
	}, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Segmenter exposes the configured segmenter.
func (p *Processor) Segmenter() *segment.Segmenter {
	return p.segmenter
}

// Process creates chunks from the document content. Input chunks are ignored.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	var (
		pieces []segment.Chunk
		err    error
	)
	if doc.Modality.OrDefault() == domain.ModalityImage {
		pieces, err = p.whole(ctx, doc.Content)
	} else {
		pieces, err = p.segmenter.Segment(ctx, doc.Content)
	}
	if err != nil {
		return nil, err
	}
	// A blank document segments to one empty chunk; there is nothing to
	// embed or store.
	pieces = slices.DeleteFunc(pieces, func(c segment.Chunk) bool { return c.Text == "" })
	if len(pieces) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		meta := map[string]any{MetaSentenceCount: piece.SentenceCount}
		if piece.Oversized {
			meta[MetaOversized] = true
		}
		chunks[i] = domain.Chunk{
			ID:            p.newID(),
			DocumentID:    doc.ID,
			Content:       piece.Text,
			Position:      i,
			SentenceCount: piece.SentenceCount,
			Tokens:        piece.Tokens,
			Oversized:     piece.Oversized,
			Metadata:      meta,
		}
	}
	return chunks, nil
}

// whole returns the content as one chunk; image captions are not segmented.
func (p *Processor) whole(ctx context.Context, content string) ([]segment.Chunk, error) {
	text := segment.NormalizeText(content)
	if text == "" {
		return nil, nil
	}
	tokens, err := p.tokens.CountTokens(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenEstimation, err)
	}
	maxTokens := p.segmenter.Settings().MaxTokens
	return []segment.Chunk{{Text: text, SentenceCount: 1, Tokens: tokens, Oversized: tokens > maxTokens}}, nil
}
