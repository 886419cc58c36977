// Package heuristic estimates token counts from rune length.
package heuristic

import (
	"context"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Estimator implements the interface.
var _ driven.TokenEstimator = (*Estimator)(nil)

// RunesPerToken is the average rune length of a token in English text.
const RunesPerToken = 4

// Estimator counts one token per RunesPerToken runes, rounding up.
type Estimator struct{}

// New creates a heuristic estimator.
func New() *Estimator {
	return &Estimator{}
}

// CountTokens returns ceil(runes/4); non-empty text is never 0 tokens.
func (Estimator) CountTokens(_ context.Context, text string) (int, error) {
	n := utf8.RuneCountInString(text)
	return (n + RunesPerToken - 1) / RunesPerToken, nil
}

// Name identifies the estimator.
func (Estimator) Name() string {
	return "heuristic"
}
