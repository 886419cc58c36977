package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/segment"
)

type wordCounter struct{ err error }

func (w wordCounter) CountTokens(_ context.Context, text string) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	return len(strings.Fields(text)), nil
}

// keywordEmbedder returns [1,0] for sentences mentioning "cat", [0,1] otherwise.
type keywordEmbedder struct{ calls int }

func (k *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	k.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.Contains(strings.ToLower(text), "cat") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func newTestProcessor(t *testing.T, emb segment.Embedder, tokens segment.TokenCounter) *Processor {
	t.Helper()
	p, err := New(emb, tokens,
		segment.WithSplitter(segment.RegexSplitter{}),
		segment.WithSmoothingRadius(0),
		segment.WithTokenBounds(1, 5, 100),
	)
	require.NoError(t, err)
	n := 0
	p.newID = func() string {
		n++
		return fmt.Sprintf("chunk-%d", n)
	}
	return p
}

func TestNew_InvalidSettings(t *testing.T) {
	_, err := New(&keywordEmbedder{}, wordCounter{}, segment.WithTokenBounds(5, 1, 2))
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)
}

func TestProcessor_Name(t *testing.T) {
	p := newTestProcessor(t, &keywordEmbedder{}, wordCounter{})
	assert.Equal(t, "semantic", p.Name())
	assert.NotNil(t, p.Segmenter())
}

func TestProcessor_Process_TextDocument(t *testing.T) {
	p := newTestProcessor(t, &keywordEmbedder{}, wordCounter{})
	doc := &domain.Document{
		ID:      "doc-1",
		Content: "The cat sat. The cat slept. Rain fell hard. Rain kept falling.",
	}

	chunks, err := p.Process(context.Background(), doc, []domain.Chunk{{ID: "ignored"}})

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "chunk-1", chunks[0].ID)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
	assert.Equal(t, "The cat sat. The cat slept.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, 2, chunks[0].SentenceCount)
	assert.Equal(t, 6, chunks[0].Tokens)
	assert.Equal(t, 2, chunks[0].Metadata[MetaSentenceCount])
	assert.NotContains(t, chunks[0].Metadata, MetaOversized)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Equal(t, "Rain fell hard. Rain kept falling.", chunks[1].Content)
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	emb := &keywordEmbedder{}
	p := newTestProcessor(t, emb, wordCounter{})

	chunks, err := p.Process(context.Background(), &domain.Document{ID: "d", Content: "  \n "}, nil)

	require.NoError(t, err)
	assert.Nil(t, chunks)
	assert.Zero(t, emb.calls)
}

func TestProcessor_Process_ImageDocumentKeptWhole(t *testing.T) {
	emb := &keywordEmbedder{}
	p := newTestProcessor(t, emb, wordCounter{})
	doc := &domain.Document{
		ID:       "img-1",
		Modality: domain.ModalityImage,
		Content:  "A cat on a mat. Sunlight through a window.",
	}

	chunks, err := p.Process(context.Background(), doc, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, doc.Content, chunks[0].Content)
	assert.Equal(t, 1, chunks[0].SentenceCount)
	assert.Equal(t, 9, chunks[0].Tokens)
	assert.Zero(t, emb.calls)
}

func TestProcessor_Process_OversizedMetadata(t *testing.T) {
	p, err := New(&keywordEmbedder{}, wordCounter{}, segment.WithTokenBounds(1, 2, 3))
	require.NoError(t, err)

	chunks, err := p.Process(context.Background(), &domain.Document{ID: "d", Content: "one two three four five"}, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Oversized)
	assert.Equal(t, true, chunks[0].Metadata[MetaOversized])
	assert.NotEmpty(t, chunks[0].ID)
}

func TestProcessor_Process_TokenError(t *testing.T) {
	boom := errors.New("boom")
	p := newTestProcessor(t, &keywordEmbedder{}, wordCounter{err: boom})

	for _, modality := range []domain.Modality{domain.ModalityText, domain.ModalityImage} {
		_, err := p.Process(context.Background(), &domain.Document{Modality: modality, Content: "Some text."}, nil)
		assert.ErrorIs(t, err, domain.ErrTokenEstimation)
		assert.ErrorIs(t, err, boom)
	}
}
