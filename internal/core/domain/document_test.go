package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMetadata(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, CloneMetadata(nil))
	})

	t.Run("empty becomes nil", func(t *testing.T) {
		assert.Nil(t, CloneMetadata(map[string]any{}))
	})

	t.Run("copy is independent", func(t *testing.T) {
		src := map[string]any{"title": "A", "pages": 3}
		dst := CloneMetadata(src)
		dst["title"] = "B"

		assert.Equal(t, "A", src["title"])
		assert.Equal(t, 3, dst["pages"])
	})
}

func TestModality(t *testing.T) {
	assert.True(t, ModalityText.IsValid())
	assert.True(t, ModalityImage.IsValid())
	assert.False(t, Modality("audio").IsValid())
	assert.Equal(t, ModalityText, Modality("").OrDefault())
	assert.Equal(t, ModalityImage, ModalityImage.OrDefault())
	assert.Equal(t, "image", ModalityImage.String())
}

func TestChunkVector(t *testing.T) {
	c := Chunk{Embedding: []float32{1}, ImageEmbedding: []float32{2}}

	assert.Equal(t, []float32{1}, c.Vector(ModalityText))
	assert.Equal(t, []float32{2}, c.Vector(ModalityImage))
	assert.Equal(t, []float32{1}, c.Vector(""))
}
