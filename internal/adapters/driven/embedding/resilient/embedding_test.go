package resilient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var errTransient = errors.New("503 service unavailable")

// countingEmbedder returns [len(text)] vectors and fails the first n calls.
type countingEmbedder struct {
	mu       sync.Mutex
	failures int
	short    bool
	batches  [][]string
	closed   bool
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, append([]string(nil), texts...))
	if c.failures > 0 {
		c.failures--
		return nil, errTransient
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	if c.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int              { return 1 }
func (c *countingEmbedder) ModelName() string            { return "counting" }
func (c *countingEmbedder) Ping(_ context.Context) error { return nil }
func (c *countingEmbedder) Close() error                 { c.closed = true; return nil }

func TestEmbedBatch_SplitsIntoBatches(t *testing.T) {
	inner := &countingEmbedder{}
	svc := New(inner, WithBatchSize(2))

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}, {4}, {5}}, vecs)
	require.Len(t, inner.batches, 3)
	assert.Equal(t, []string{"eeeee"}, inner.batches[2])
}

func TestEmbedBatch_DeduplicatesTexts(t *testing.T) {
	inner := &countingEmbedder{}
	svc := New(inner)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"x", "yy", "x"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {1}}, vecs)
	assert.Equal(t, [][]string{{"x", "yy"}}, inner.batches)
}

func TestEmbedBatch_RetriesTransientFailures(t *testing.T) {
	inner := &countingEmbedder{failures: 2}
	svc := New(inner, WithRetries(3, time.Millisecond))

	vec, err := svc.Embed(context.Background(), "abc")

	require.NoError(t, err)
	assert.Equal(t, []float32{3}, vec)
	assert.Len(t, inner.batches, 3)
}

func TestEmbedBatch_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &countingEmbedder{failures: 10}
	svc := New(inner, WithRetries(2, time.Millisecond))

	_, err := svc.Embed(context.Background(), "abc")

	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.ErrorIs(t, err, errTransient)
	assert.Len(t, inner.batches, 3)
}

func TestEmbedBatch_CountMismatchIsNotRetried(t *testing.T) {
	inner := &countingEmbedder{short: true}
	svc := New(inner, WithRetries(3, time.Millisecond))

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})

	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Len(t, inner.batches, 1)
}

func TestEmbedBatch_Cache(t *testing.T) {
	inner := &countingEmbedder{}
	svc := New(inner, WithCache(8))
	ctx := context.Background()

	first, err := svc.Embed(ctx, "hello")
	require.NoError(t, err)
	first[0] = 99

	second, err := svc.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{5}, second)
	assert.Len(t, inner.batches, 1)
}

func TestEmbedBatch_RateLimitHonoursContext(t *testing.T) {
	inner := &countingEmbedder{}
	svc := New(inner, WithRateLimit(0.001, 1), WithBatchSize(1), WithRetries(0, 0))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.EmbedBatch(ctx, []string{"a", "b"})

	assert.Error(t, err)
	assert.Len(t, inner.batches, 1)
}

func TestFromSettings(t *testing.T) {
	inner := &countingEmbedder{}
	svc := FromSettings(inner, domain.RateLimitSettings{BatchSize: 3, MaxRetries: 1}, 0)

	assert.Equal(t, 3, svc.batchSize)
	assert.Equal(t, 1, svc.maxRetries)
	assert.Nil(t, svc.limiter)
	assert.Nil(t, svc.cache)
	assert.Equal(t, "counting", svc.ModelName())
	assert.Equal(t, 1, svc.Dimensions())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
	assert.True(t, inner.closed)
}
