package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestVectorIndex_SearchOrdersBySimilarity(t *testing.T) {
	idx := NewVectorIndex(2)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "east", []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "north", []float32{0, 1}))
	require.NoError(t, idx.Add(ctx, "northeast", []float32{1, 1}))
	require.NoError(t, idx.Add(ctx, "west", []float32{-1, 0}))

	hits, err := idx.Search(ctx, []float32{1, 0.1}, 3)

	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "east", hits[0].ChunkID)
	assert.Equal(t, "northeast", hits[1].ChunkID)
	assert.Equal(t, "north", hits[2].ChunkID)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
}

func TestVectorIndex_TiesBrokenByID(t *testing.T) {
	idx := NewVectorIndex(0)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "b", []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "a", []float32{2, 0}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 10)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ChunkID)
	assert.Equal(t, 2, idx.Dimensions())
}

func TestVectorIndex_AddReplaceDelete(t *testing.T) {
	idx := NewVectorIndex(2)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "x", []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "x", []float32{0, 1}))
	assert.Equal(t, 1, idx.Len())

	hits, err := idx.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)

	require.NoError(t, idx.Delete(ctx, "x"))
	require.NoError(t, idx.Delete(ctx, "unknown"))
	assert.Equal(t, 0, idx.Len())
}

func TestVectorIndex_Errors(t *testing.T) {
	idx := NewVectorIndex(3)
	ctx := context.Background()

	assert.ErrorIs(t, idx.Add(ctx, "x", []float32{1, 2}), domain.ErrInvalidInput)
	assert.ErrorIs(t, idx.Add(ctx, "x", nil), domain.ErrInvalidInput)

	_, err := idx.Search(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	hits, err := idx.Search(ctx, []float32{1, 2, 3}, 0)
	assert.NoError(t, err)
	assert.Nil(t, hits)
}

func TestVectorIndex_Close(t *testing.T) {
	idx := NewVectorIndex(1)
	require.NoError(t, idx.Add(context.Background(), "x", []float32{1}))

	require.NoError(t, idx.Close())

	assert.Equal(t, 0, idx.Len())
}
