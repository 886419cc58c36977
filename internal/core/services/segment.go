package services

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/segment"
)

// Ensure SegmentService implements the interface.
var _ driving.SegmentService = (*SegmentService)(nil)

// SegmentService runs the segmenter on ad-hoc text.
type SegmentService struct {
	embedder driven.EmbeddingService
	tokens   driven.TokenEstimator
	settings domain.SegmentationSettings
	splitter segment.SentenceSplitter
}

// NewSegmentService creates a segment service. splitter is the strategy
// detected at startup; nil probes once here.
func NewSegmentService(
	embedder driven.EmbeddingService,
	tokens driven.TokenEstimator,
	settings domain.SegmentationSettings,
	splitter segment.SentenceSplitter,
) *SegmentService {
	if splitter == nil {
		splitter = segment.DetectSplitter()
	}
	return &SegmentService{embedder: embedder, tokens: tokens, settings: settings, splitter: splitter}
}

// Segment splits text into chunks.
func (s *SegmentService) Segment(ctx context.Context, text string, opts driving.SegmentOptions) ([]domain.Chunk, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	settings := s.settings
	if opts.Settings != nil {
		settings = *opts.Settings
	}
	splitter, err := segment.ResolveSplitter(opts.Splitter, s.splitter)
	if err != nil {
		return nil, err
	}

	seg, err := segment.New(s.embedder, s.tokens, segment.WithSettings(settings), segment.WithSplitter(splitter))
	if err != nil {
		return nil, err
	}
	pieces, err := seg.Segment(ctx, text)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.Chunk{
			Content:       p.Text,
			Position:      i,
			SentenceCount: p.SentenceCount,
			Tokens:        p.Tokens,
			Oversized:     p.Oversized,
		}
	}
	return chunks, nil
}
