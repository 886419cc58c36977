// Package chunker provides a fixed-window chunking processor. It is the
// fallback for setups where sentence embeddings are too costly: windows are
// cut by rune count with overlap, preferring whitespace near the window end.
package chunker

import (
	"context"
	"fmt"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/segment"
)

// Name is the registry name of the processor.
const Name = "fixed"

// DefaultWindowRunes is the default number of runes per chunk.
const DefaultWindowRunes = 4000

// DefaultOverlapRunes is the default number of overlapping runes.
const DefaultOverlapRunes = 400

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor splits document content into fixed-size, overlapping windows.
type Processor struct {
	tokens    driven.TokenEstimator
	window    int
	overlap   int
	maxTokens int
	newID     func() string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithWindow sets the window size in runes.
func WithWindow(runes int) Option {
	return func(p *Processor) {
		if runes > 0 {
			p.window = runes
		}
	}
}

// WithOverlap sets the overlap between windows in runes.
func WithOverlap(runes int) Option {
	return func(p *Processor) {
		if runes >= 0 {
			p.overlap = runes
		}
	}
}

// WithMaxTokens marks windows above this estimate as oversized.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// New creates a new chunker processor.
func New(tokens driven.TokenEstimator, opts ...Option) (*Processor, error) {
	if tokens == nil {
		return nil, fmt.Errorf("%s: token estimator is required", Name)
	}
	p := &Processor{
		tokens:    tokens,
		window:    DefaultWindowRunes,
		overlap:   DefaultOverlapRunes,
		maxTokens: domain.DefaultSegmentationSettings().MaxTokens,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.overlap >= p.window {
		p.overlap = p.window / 4
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Process splits the document content into windows. Input chunks are ignored.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	text := segment.NormalizeText(doc.Content)
	if text == "" {
		return nil, nil
	}

	var pieces []string
	if doc.Modality.OrDefault() == domain.ModalityImage {
		pieces = []string{text}
	} else {
		pieces = p.windows([]rune(text))
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens, err := p.tokens.CountTokens(ctx, piece)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrTokenEstimation, err)
		}
		chunks = append(chunks, domain.Chunk{
			ID:         p.newID(),
			DocumentID: doc.ID,
			Content:    piece,
			Position:   i,
			Tokens:     tokens,
			Oversized:  tokens > p.maxTokens,
			Metadata:   map[string]any{"window_runes": p.window},
		})
	}
	return chunks, nil
}

// windows cuts runes into overlapping windows. A cut moves back to the last
// whitespace in the final quarter of the window when one exists.
func (p *Processor) windows(runes []rune) []string {
	var out []string
	start := 0
	for start < len(runes) {
		end := min(start+p.window, len(runes))
		if end < len(runes) {
			end = softEnd(runes, start, end, p.window/4)
		}

		if piece := trimSpace(runes[start:end]); piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
		start = max(end-p.overlap, start+1)
	}
	return out
}

func softEnd(runes []rune, start, end, slack int) int {
	for i := end; i > end-slack && i > start+1; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func trimSpace(r []rune) string {
	i, j := 0, len(r)
	for i < j && unicode.IsSpace(r[i]) {
		i++
	}
	for j > i && unicode.IsSpace(r[j-1]) {
		j--
	}
	return string(r[i:j])
}
