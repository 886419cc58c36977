package segment

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// SplitEdgeMargin is the number of characters at either end of a piece in
// which a bisection split point is not allowed.
const SplitEdgeMargin = 200

// pieceSeparator joins pieces accumulated into one chunk.
const pieceSeparator = "\n\n"

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t]*\n\s*`)
	sentenceBreak  = regexp.MustCompile(`[.?!]\s`)
)

// Chunk is a final, token-bounded unit of text ready for embedding.
type Chunk struct {
	Text          string `json:"text"`
	SentenceCount int    `json:"sentence_count"`
	Tokens        int    `json:"tokens"`
	Oversized     bool   `json:"oversized,omitempty"`
}

// TokenCounter estimates the number of tokens in a text.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// Sizer enforces the min/target/max token policy over segments.
type Sizer struct {
	tokens   TokenCounter
	splitter SentenceSplitter
	target   int
	max      int
	min      int
}

// NewSizer creates a Sizer. The splitter recounts sentences in bisected halves.
func NewSizer(tokens TokenCounter, splitter SentenceSplitter, s domain.SegmentationSettings) *Sizer {
	return &Sizer{
		tokens:   tokens,
		splitter: splitter,
		target:   s.TargetTokens,
		max:      s.MaxTokens,
		min:      s.MinTokens,
	}
}

// Normalize bisects oversized segments, accumulates the pieces greedily and
// merges short tails into their predecessors.
func (z *Sizer) Normalize(ctx context.Context, segments []Segment) ([]Chunk, error) {
	var pieces []Chunk
	for _, seg := range segments {
		split, err := z.bisect(ctx, seg)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, split...)
	}
	chunks, err := z.accumulate(ctx, pieces)
	if err != nil {
		return nil, err
	}
	return z.mergeTail(ctx, chunks)
}

// join concatenates two chunks and recounts the result, so the separator
// and any merges across the seam are reflected in Tokens.
func (z *Sizer) join(ctx context.Context, a, b Chunk) (Chunk, error) {
	text := a.Text + pieceSeparator + b.Text
	tokens, err := z.count(ctx, text)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{
		Text:          text,
		SentenceCount: a.SentenceCount + b.SentenceCount,
		Tokens:        tokens,
		Oversized:     a.Oversized || b.Oversized,
	}, nil
}

func (z *Sizer) count(ctx context.Context, text string) (int, error) {
	n, err := z.tokens.CountTokens(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrTokenEstimation, err)
	}
	return max(0, n), nil
}

// bisect splits a segment until every piece fits MaxTokens or has no valid
// split point. It walks an explicit stack so pathological inputs cannot grow
// the call stack; pieces come out in document order.
func (z *Sizer) bisect(ctx context.Context, seg Segment) ([]Chunk, error) {
	tokens, err := z.count(ctx, seg.Text)
	if err != nil {
		return nil, err
	}

	stack := []Chunk{{Text: seg.Text, SentenceCount: seg.SentenceCount, Tokens: tokens}}
	var out []Chunk
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		piece := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if piece.Tokens <= z.max {
			out = append(out, piece)
			continue
		}

		left, right, ok := splitNearMiddle(piece.Text)
		if !ok {
			logger.Debug("Oversized piece kept whole: %d tokens > %d, no split point", piece.Tokens, z.max)
			piece.Oversized = true
			out = append(out, piece)
			continue
		}

		leftTokens, err := z.count(ctx, left)
		if err != nil {
			return nil, err
		}
		rightTokens, err := z.count(ctx, right)
		if err != nil {
			return nil, err
		}

		// Right first so the left half is popped next.
		stack = append(stack,
			Chunk{Text: right, SentenceCount: z.sentenceCount(right), Tokens: rightTokens},
			Chunk{Text: left, SentenceCount: z.sentenceCount(left), Tokens: leftTokens},
		)
	}
	return out, nil
}

func (z *Sizer) sentenceCount(text string) int {
	return max(1, len(z.splitter.Split(text)))
}

type bufferState int

const (
	stateFlushed bufferState = iota
	stateAccumulating
)

// accumulate packs pieces into chunks. A piece whose join would overflow
// MaxTokens starts a new buffer; a buffer that reaches TargetTokens is
// flushed at once.
func (z *Sizer) accumulate(ctx context.Context, pieces []Chunk) ([]Chunk, error) {
	var (
		chunks []Chunk
		buf    Chunk
		state  = stateFlushed
	)
	flush := func() {
		if state == stateAccumulating {
			chunks = append(chunks, buf)
		}
		buf = Chunk{}
		state = stateFlushed
	}

	for _, piece := range pieces {
		if state == stateAccumulating {
			joined, err := z.join(ctx, buf, piece)
			if err != nil {
				return nil, err
			}
			if joined.Tokens > z.max {
				flush()
			} else {
				buf = joined
			}
		}
		if state == stateFlushed {
			buf = piece
			state = stateAccumulating
		}
		if buf.Tokens >= z.target {
			flush()
		}
	}
	flush()
	return chunks, nil
}

// mergeTail folds chunks under MinTokens into their predecessor when the
// joined text stays within MaxTokens.
func (z *Sizer) mergeTail(ctx context.Context, chunks []Chunk) ([]Chunk, error) {
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Tokens < z.min && len(out) > 0 {
			prev := &out[len(out)-1]
			joined, err := z.join(ctx, *prev, c)
			if err != nil {
				return nil, err
			}
			if joined.Tokens <= z.max {
				*prev = joined
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// splitCut is a candidate split: the left half ends at at, the right half
// starts at resume (byte offsets).
type splitCut struct {
	at     int
	resume int
}

// splitNearMiddle bisects text at the paragraph break nearest the character
// midpoint, falling back to sentence-ending punctuation. Candidates within
// SplitEdgeMargin characters of either edge are excluded.
func splitNearMiddle(text string) (left, right string, ok bool) {
	total := utf8.RuneCountInString(text)
	if total < 2*SplitEdgeMargin {
		return "", "", false
	}
	for _, cuts := range [][]splitCut{paragraphCuts(text), sentenceCuts(text)} {
		best, found := nearestCut(text, cuts, total)
		if !found {
			continue
		}
		left = strings.TrimSpace(text[:best.at])
		right = strings.TrimSpace(text[best.resume:])
		if left != "" && right != "" {
			return left, right, true
		}
	}
	return "", "", false
}

func paragraphCuts(text string) []splitCut {
	locs := paragraphBreak.FindAllStringIndex(text, -1)
	cuts := make([]splitCut, len(locs))
	for i, loc := range locs {
		cuts[i] = splitCut{at: loc[0], resume: loc[1]}
	}
	return cuts
}

func sentenceCuts(text string) []splitCut {
	locs := sentenceBreak.FindAllStringIndex(text, -1)
	cuts := make([]splitCut, len(locs))
	for i, loc := range locs {
		cuts[i] = splitCut{at: loc[0] + 1, resume: loc[0] + 1}
	}
	return cuts
}

// nearestCut picks the allowed cut closest to the rune midpoint. cuts must be
// in increasing byte order.
func nearestCut(text string, cuts []splitCut, total int) (splitCut, bool) {
	mid := total / 2
	var (
		best     splitCut
		bestDist = -1
		runePos  int
		bytePos  int
	)
	for _, c := range cuts {
		runePos += utf8.RuneCountInString(text[bytePos:c.at])
		bytePos = c.at
		if runePos < SplitEdgeMargin || total-runePos < SplitEdgeMargin {
			continue
		}
		dist := runePos - mid
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = c, dist
		}
	}
	return best, bestDist >= 0
}
