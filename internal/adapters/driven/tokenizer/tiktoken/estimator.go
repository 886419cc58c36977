// Package tiktoken counts BPE tokens with tiktoken-go.
package tiktoken

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Estimator implements the interface.
var _ driven.TokenEstimator = (*Estimator)(nil)

// DefaultEncoding is used when no encoding or model is configured.
const DefaultEncoding = "cl100k_base"

// Estimator counts tokens with a tiktoken encoding.
type Estimator struct {
	encoding string
	tke      *tiktoken.Tiktoken
}

// New creates an estimator for an encoding ("cl100k_base") or a model name
// ("gpt-4o").
func New(encodingOrModel string) (*Estimator, error) {
	if encodingOrModel == "" {
		encodingOrModel = DefaultEncoding
	}

	tke, err := tiktoken.GetEncoding(encodingOrModel)
	if err != nil {
		// Try as a model name
		tke, err = tiktoken.EncodingForModel(encodingOrModel)
		if err != nil {
			return nil, fmt.Errorf("tiktoken: load %q: %w", encodingOrModel, err)
		}
	}

	return &Estimator{encoding: encodingOrModel, tke: tke}, nil
}

// CountTokens returns the exact BPE token count of text.
func (e *Estimator) CountTokens(_ context.Context, text string) (int, error) {
	return len(e.tke.Encode(text, nil, nil)), nil
}

// Name identifies the estimator and encoding.
func (e *Estimator) Name() string {
	return "tiktoken/" + e.encoding
}
