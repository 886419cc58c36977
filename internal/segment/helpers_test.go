package segment

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// wordCounter counts whitespace-separated words, so token counts of joined
// pieces are exact sums.
type wordCounter struct {
	err error
}

func (w wordCounter) CountTokens(_ context.Context, text string) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	return len(strings.Fields(text)), nil
}

// topicEmbedder maps each sentence to a unit vector by the first topic
// keyword it contains.
type topicEmbedder struct {
	mu       sync.Mutex
	topics   []string
	err      error
	short    bool
	batchLen []int
}

func newTopicEmbedder(topics ...string) *topicEmbedder {
	return &topicEmbedder{topics: topics}
}

func (e *topicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchLen = append(e.batchLen, len(texts))
	e.mu.Unlock()

	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec := make([]float32, len(e.topics)+1)
		vec[len(e.topics)] = 1
		lower := strings.ToLower(text)
		for i, topic := range e.topics {
			if strings.Contains(lower, topic) {
				vec[len(e.topics)] = 0
				vec[i] = 1
				break
			}
		}
		out = append(out, vec)
	}
	if e.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *topicEmbedder) calls() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.batchLen...)
}

var errBoom = errors.New("boom")

// words returns n space-separated copies of word.
func words(word string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}
