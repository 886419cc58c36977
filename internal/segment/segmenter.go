package segment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Embedder generates one vector per input text.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Segmenter runs the full segmentation pipeline.
type Segmenter struct {
	embedder Embedder
	tokens   TokenCounter
	splitter SentenceSplitter
	settings domain.SegmentationSettings
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithSplitter sets the sentence splitting strategy (default DetectSplitter()).
func WithSplitter(s SentenceSplitter) Option {
	return func(seg *Segmenter) {
		if s != nil {
			seg.splitter = s
		}
	}
}

// WithSettings replaces all segmentation settings.
func WithSettings(s domain.SegmentationSettings) Option {
	return func(seg *Segmenter) {
		seg.settings = s
	}
}

// WithTokenBounds sets the min, target and max token counts.
func WithTokenBounds(minTokens, target, maxTokens int) Option {
	return func(seg *Segmenter) {
		seg.settings.MinTokens = minTokens
		seg.settings.TargetTokens = target
		seg.settings.MaxTokens = maxTokens
	}
}

// WithDropThreshold sets the similarity drop that marks a topic shift.
func WithDropThreshold(v float64) Option {
	return func(seg *Segmenter) {
		seg.settings.SimilarityDropThreshold = v
	}
}

// WithStdMultiplier sets k in the dynamic threshold mean - k*std.
func WithStdMultiplier(v float64) Option {
	return func(seg *Segmenter) {
		seg.settings.StdMultiplier = v
	}
}

// WithSmoothingRadius sets the moving-average radius.
func WithSmoothingRadius(r int) Option {
	return func(seg *Segmenter) {
		seg.settings.SmoothingWindowRadius = r
	}
}

// WithEmbedBatchSize bounds the number of sentences per embedding request.
func WithEmbedBatchSize(n int) Option {
	return func(seg *Segmenter) {
		seg.settings.EmbedBatchSize = n
	}
}

// New creates a Segmenter with default settings adjusted by opts.
func New(embedder Embedder, tokens TokenCounter, opts ...Option) (*Segmenter, error) {
	if embedder == nil {
		return nil, fmt.Errorf("segment: %w", domain.ErrEmbeddingUnavailable)
	}
	if tokens == nil {
		return nil, errors.New("segment: token counter is required")
	}

	seg := &Segmenter{
		embedder: embedder,
		tokens:   tokens,
		settings: domain.DefaultSegmentationSettings(),
	}
	for _, opt := range opts {
		opt(seg)
	}
	if seg.splitter == nil {
		seg.splitter = DetectSplitter()
	}
	if err := seg.settings.Validate(); err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	return seg, nil
}

// Settings returns the effective settings.
func (s *Segmenter) Settings() domain.SegmentationSettings {
	return s.settings
}

// SplitterName returns the name of the sentence splitting strategy in use.
func (s *Segmenter) SplitterName() string {
	return s.splitter.Name()
}

// Segment splits text into chunks. A document with zero or one sentence,
// including an empty one, is returned whole as a single chunk without
// embedding. A collaborator failure fails the whole call.
func (s *Segmenter) Segment(ctx context.Context, text string) ([]Chunk, error) {
	defer logger.Elapsed("segment", time.Now())

	text = NormalizeText(text)
	sentences := s.splitter.Split(text)
	logger.Debug("Sentences: %d (splitter=%s)", len(sentences), s.splitter.Name())
	if len(sentences) <= 1 {
		tokens, err := s.tokens.CountTokens(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("segment: %w: %w", domain.ErrTokenEstimation, err)
		}
		return []Chunk{{
			Text:          text,
			SentenceCount: max(1, len(sentences)),
			Tokens:        tokens,
			Oversized:     tokens > s.settings.MaxTokens,
		}}, nil
	}

	embeddings, err := s.embedSentences(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}

	breakpoints := DetectBreakpoints(embeddings, BoundaryParams{
		DropThreshold: s.settings.SimilarityDropThreshold,
		StdMultiplier: s.settings.StdMultiplier,
		Radius:        s.settings.SmoothingWindowRadius,
	})
	logger.Debug("Breakpoints: %v", breakpoints)

	segments := BuildSegments(sentences, breakpoints)
	chunks, err := NewSizer(s.tokens, s.splitter, s.settings).Normalize(ctx, segments)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	logger.Debug("Segments: %d, chunks: %d", len(segments), len(chunks))
	return chunks, nil
}

// embedSentences embeds sentences in batches of EmbedBatchSize.
func (s *Segmenter) embedSentences(ctx context.Context, sentences []Sentence) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(sentences))
	batchSize := s.settings.EmbedBatchSize
	for start := 0; start < len(sentences); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batchSize, len(sentences))
		texts := make([]string, 0, end-start)
		for _, sentence := range sentences[start:end] {
			texts = append(texts, sentence.Text)
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d sentences", domain.ErrEmbedding, len(vectors), len(texts))
		}
		embeddings = append(embeddings, vectors...)
	}
	return embeddings, nil
}
