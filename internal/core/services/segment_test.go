package services

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/segment"
)

// countingSplitter wraps the regex strategy and counts Split calls.
type countingSplitter struct {
	segment.RegexSplitter
	calls atomic.Int32
}

func (c *countingSplitter) Split(text string) []segment.Sentence {
	c.calls.Add(1)
	return c.RegexSplitter.Split(text)
}

// wordTokens counts whitespace-separated words.
type wordTokens struct{}

func (wordTokens) CountTokens(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (wordTokens) Name() string { return "words" }

const catsAndStocks = "The cat sat down. The cat purred. The cat slept. " +
	"Stock prices fell. Stock markets closed. Stock traders left."

func topicEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{
		"Stock prices fell.":    {0, 1},
		"Stock markets closed.": {0, 1},
		"Stock traders left.":   {0, 1},
	}}
}

func TestSegmentService_Segment(t *testing.T) {
	settings := domain.DefaultSegmentationSettings()
	settings.SmoothingWindowRadius = 0
	settings.MinTokens, settings.TargetTokens, settings.MaxTokens = 1, 5, 100
	svc := NewSegmentService(topicEmbedder(), wordTokens{}, settings, nil)

	chunks, err := svc.Segment(context.Background(), catsAndStocks, driving.SegmentOptions{Splitter: "regex"})

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "The cat sat down. The cat purred. The cat slept.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, 3, chunks[0].SentenceCount)
	assert.Equal(t, 10, chunks[0].Tokens)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Empty(t, chunks[1].ID)
}

func TestSegmentService_SettingsOverride(t *testing.T) {
	svc := NewSegmentService(topicEmbedder(), wordTokens{}, domain.DefaultSegmentationSettings(), nil)

	// Defaults accumulate everything into one chunk
	chunks, err := svc.Segment(context.Background(), catsAndStocks, driving.SegmentOptions{Splitter: "regex"})
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	override := domain.DefaultSegmentationSettings()
	override.SmoothingWindowRadius = 0
	override.MinTokens, override.TargetTokens, override.MaxTokens = 1, 5, 100
	chunks, err = svc.Segment(context.Background(), catsAndStocks, driving.SegmentOptions{Settings: &override, Splitter: "regex"})
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestSegmentService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no embedder", func(t *testing.T) {
		_, err := NewSegmentService(nil, wordTokens{}, domain.DefaultSegmentationSettings(), nil).
			Segment(ctx, "x.", driving.SegmentOptions{})
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("unknown splitter", func(t *testing.T) {
		_, err := NewSegmentService(topicEmbedder(), wordTokens{}, domain.DefaultSegmentationSettings(), nil).
			Segment(ctx, "x.", driving.SegmentOptions{Splitter: "nltk"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("invalid settings", func(t *testing.T) {
		bad := domain.DefaultSegmentationSettings()
		bad.MinTokens = bad.MaxTokens + 1
		_, err := NewSegmentService(topicEmbedder(), wordTokens{}, bad, nil).Segment(ctx, "x.", driving.SegmentOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidSettings)
	})

	t.Run("embedding failure", func(t *testing.T) {
		_, err := NewSegmentService(&fakeEmbedder{err: errBoom}, wordTokens{}, domain.DefaultSegmentationSettings(), nil).
			Segment(ctx, catsAndStocks, driving.SegmentOptions{Splitter: "regex"})
		assert.Error(t, err)
	})
}

func TestSegmentService_UsesInjectedSplitter(t *testing.T) {
	settings := domain.DefaultSegmentationSettings()
	settings.SmoothingWindowRadius = 0
	settings.MinTokens, settings.TargetTokens, settings.MaxTokens = 1, 5, 100
	detected := &countingSplitter{}
	svc := NewSegmentService(topicEmbedder(), wordTokens{}, settings, detected)

	for _, name := range []string{"", "auto"} {
		chunks, err := svc.Segment(context.Background(), catsAndStocks, driving.SegmentOptions{Splitter: name})
		require.NoError(t, err)
		assert.Len(t, chunks, 2)
	}
	used := detected.calls.Load()
	assert.Positive(t, used)

	_, err := svc.Segment(context.Background(), catsAndStocks, driving.SegmentOptions{Splitter: "unicode"})
	require.NoError(t, err)
	assert.Equal(t, used, detected.calls.Load(), "a named splitter replaces the injected one")
}

func TestSegmentService_EmptyText(t *testing.T) {
	emb := topicEmbedder()
	svc := NewSegmentService(emb, wordTokens{}, domain.DefaultSegmentationSettings(), nil)

	chunks, err := svc.Segment(context.Background(), "  \n ", driving.SegmentOptions{})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].SentenceCount)
}
