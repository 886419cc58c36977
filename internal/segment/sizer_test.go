package segment

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func sizerSettings(minTokens, target, maxTokens int) domain.SegmentationSettings {
	s := domain.DefaultSegmentationSettings()
	s.MinTokens, s.TargetTokens, s.MaxTokens = minTokens, target, maxTokens
	return s
}

func newTestSizer(minTokens, target, maxTokens int) *Sizer {
	return NewSizer(wordCounter{}, RegexSplitter{}, sizerSettings(minTokens, target, maxTokens))
}

func tokenCounts(chunks []Chunk) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = c.Tokens
	}
	return out
}

// piece builds a pre-sized chunk of n copies of word.
func piece(word string, n, sentences int) Chunk {
	return Chunk{Text: words(word, n), Tokens: n, SentenceCount: sentences}
}

// separatorCounter charges one token per word and one per piece separator,
// like a BPE tokenizer encoding the blank line.
type separatorCounter struct{}

func (separatorCounter) CountTokens(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)) + strings.Count(text, pieceSeparator), nil
}

func TestSizer_AccumulateFlushesAtTarget(t *testing.T) {
	z := newTestSizer(1, 10, 15)
	pieces := []Chunk{piece("a", 3, 1), piece("b", 3, 1), piece("c", 3, 1), piece("d", 3, 2), piece("e", 3, 1)}

	got, err := z.accumulate(context.Background(), pieces)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int{12, 3}, tokenCounts(got))
	assert.Equal(t, "a a a\n\nb b b\n\nc c c\n\nd d d", got[0].Text)
	assert.Equal(t, 5, got[0].SentenceCount)
}

func TestSizer_AccumulateFlushesOnOverflow(t *testing.T) {
	z := newTestSizer(1, 20, 15)
	pieces := []Chunk{piece("a", 8, 1), piece("b", 8, 1), piece("c", 7, 1)}

	got, err := z.accumulate(context.Background(), pieces)

	require.NoError(t, err)
	assert.Equal(t, []int{8, 15}, tokenCounts(got))
}

func TestSizer_AccumulateOversizedPieceStandsAlone(t *testing.T) {
	z := newTestSizer(1, 10, 15)
	big := piece("big", 40, 1)
	big.Oversized = true
	pieces := []Chunk{piece("a", 4, 1), big, piece("c", 4, 1)}

	got, err := z.accumulate(context.Background(), pieces)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{4, 40, 4}, tokenCounts(got))
	assert.True(t, got[1].Oversized)
	assert.False(t, got[0].Oversized)
}

func TestSizer_JoinCountsSeparator(t *testing.T) {
	z := NewSizer(separatorCounter{}, RegexSplitter{}, sizerSettings(4, 20, 10))
	ctx := context.Background()

	t.Run("accumulate refuses a join that only fits without the separator", func(t *testing.T) {
		got, err := z.accumulate(ctx, []Chunk{piece("a", 5, 1), piece("b", 5, 1)})
		require.NoError(t, err)
		assert.Equal(t, []int{5, 5}, tokenCounts(got))
	})

	t.Run("merged tail reports the recounted total", func(t *testing.T) {
		got, err := z.mergeTail(ctx, []Chunk{piece("a", 6, 1), piece("b", 2, 1)})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 9, got[0].Tokens)
	})

	t.Run("merge tail refuses an overflow caused by the separator", func(t *testing.T) {
		got, err := z.mergeTail(ctx, []Chunk{piece("a", 8, 1), piece("b", 2, 1)})
		require.NoError(t, err)
		assert.Equal(t, []int{8, 2}, tokenCounts(got))
	})

	t.Run("normalized chunks agree with a recount", func(t *testing.T) {
		segments := []Segment{
			{Text: words("a", 3), SentenceCount: 1},
			{Text: words("b", 3), SentenceCount: 1},
			{Text: words("c", 3), SentenceCount: 1},
			{Text: words("d", 2), SentenceCount: 1},
		}
		got, err := z.Normalize(ctx, segments)
		require.NoError(t, err)
		for _, c := range got {
			n, err := separatorCounter{}.CountTokens(ctx, c.Text)
			require.NoError(t, err)
			assert.Equal(t, n, c.Tokens)
			assert.LessOrEqual(t, c.Tokens, 10)
		}
	})
}

func TestSizer_MergeTail(t *testing.T) {
	z := newTestSizer(4, 10, 15)
	ctx := context.Background()

	t.Run("merges short chunk into predecessor", func(t *testing.T) {
		got, err := z.mergeTail(ctx, []Chunk{piece("a", 12, 1), piece("b", 2, 1)})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 14, got[0].Tokens)
		assert.Equal(t, words("a", 12)+"\n\nb b", got[0].Text)
	})

	t.Run("keeps short chunk when merge exceeds max", func(t *testing.T) {
		got, err := z.mergeTail(ctx, []Chunk{piece("a", 14, 1), piece("b", 2, 1)})
		require.NoError(t, err)
		assert.Equal(t, []int{14, 2}, tokenCounts(got))
	})

	t.Run("leading short chunk has no predecessor", func(t *testing.T) {
		got, err := z.mergeTail(ctx, []Chunk{piece("a", 2, 1), piece("b", 12, 1)})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 12}, tokenCounts(got))
	})

	t.Run("never merges into oversized", func(t *testing.T) {
		big := piece("a", 40, 1)
		big.Oversized = true
		got, err := z.mergeTail(ctx, []Chunk{big, piece("b", 2, 1)})
		require.NoError(t, err)
		assert.Equal(t, []int{40, 2}, tokenCounts(got))
	})

	t.Run("token error propagates", func(t *testing.T) {
		failing := NewSizer(wordCounter{err: errBoom}, RegexSplitter{}, sizerSettings(4, 10, 15))
		_, err := failing.mergeTail(ctx, []Chunk{piece("a", 12, 1), piece("b", 2, 1)})
		assert.ErrorIs(t, err, errBoom)
	})
}

// An oversized paragraph with no valid split point is returned unchanged.
func TestSizer_OversizedIndivisible(t *testing.T) {
	z := newTestSizer(10, 50, 100)
	text := words("lorem", 600)

	got, err := z.Normalize(context.Background(), []Segment{{Text: text, SentenceCount: 1}})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, text, got[0].Text)
	assert.Equal(t, 600, got[0].Tokens)
	assert.True(t, got[0].Oversized)
}

func TestSizer_OversizedWhenBreaksOnlyNearEdges(t *testing.T) {
	z := newTestSizer(10, 50, 100)
	text := "Short start. " + words("lorem", 300) + ". Short end."

	got, err := z.Normalize(context.Background(), []Segment{{Text: text, SentenceCount: 3}})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Oversized)
	assert.Equal(t, text, got[0].Text)
}

func TestSizer_BisectsAtParagraphBreak(t *testing.T) {
	z := newTestSizer(1, 70, 80)
	para1 := words("alpha", 60) + "."
	para2 := words("beta", 60) + "."

	got, err := z.Normalize(context.Background(), []Segment{{Text: para1 + "\n\n" + para2, SentenceCount: 2}})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, para1, got[0].Text)
	assert.Equal(t, para2, got[1].Text)
	assert.Equal(t, []int{60, 60}, tokenCounts(got))
	assert.Equal(t, 1, got[0].SentenceCount)
	assert.False(t, got[0].Oversized)
}

func TestSplitNearMiddle_PrefersParagraphOverCloserSentence(t *testing.T) {
	s1 := words("aa", 100) + "."
	s2 := words("bb", 40) + "."
	p2 := words("cc", 70) + "."
	text := s1 + " " + s2 + "\n\n" + p2

	left, right, ok := splitNearMiddle(text)

	require.True(t, ok)
	assert.Equal(t, s1+" "+s2, left)
	assert.Equal(t, p2, right)
}

func TestSplitNearMiddle_SentenceNearestMidpoint(t *testing.T) {
	sentences := make([]string, 10)
	for i := range sentences {
		sentences[i] = words("w", 20) + "."
	}
	text := strings.Join(sentences, " ")

	left, right, ok := splitNearMiddle(text)

	require.True(t, ok)
	assert.Equal(t, strings.Join(sentences[:5], " "), left)
	assert.Equal(t, strings.Join(sentences[5:], " "), right)
}

func TestSplitNearMiddle_TooShort(t *testing.T) {
	_, _, ok := splitNearMiddle("One. Two.\n\nThree.")
	assert.False(t, ok)
}

func TestSizer_DeepBisectionPreservesOrder(t *testing.T) {
	z := newTestSizer(50, 150, 200)
	sentences := make([]string, 200)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("Tok%d a b c d e f g h.", i)
	}
	text := strings.Join(sentences, " ")

	got, err := z.Normalize(context.Background(), []Segment{{Text: text, SentenceCount: len(sentences)}})

	require.NoError(t, err)
	require.Greater(t, len(got), 1)

	var rebuilt []string
	total := 0
	for _, c := range got {
		assert.False(t, c.Oversized)
		assert.LessOrEqual(t, c.Tokens, 200)
		rebuilt = append(rebuilt, strings.Fields(c.Text)...)
		total += c.SentenceCount
	}
	assert.Equal(t, strings.Fields(text), rebuilt)
	assert.Equal(t, len(sentences), total)
}

func TestSizer_TokenErrorPropagates(t *testing.T) {
	z := NewSizer(wordCounter{err: errBoom}, RegexSplitter{}, sizerSettings(1, 10, 20))

	got, err := z.Normalize(context.Background(), []Segment{{Text: "a b c", SentenceCount: 1}})

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrTokenEstimation)
	assert.ErrorIs(t, err, errBoom)
}

func TestSizer_CancelledContext(t *testing.T) {
	z := newTestSizer(1, 10, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := z.Normalize(ctx, []Segment{{Text: "a b c", SentenceCount: 1}})

	assert.ErrorIs(t, err, context.Canceled)
}
