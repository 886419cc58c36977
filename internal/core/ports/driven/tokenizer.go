package driven

import "context"

// TokenEstimator approximates how many model tokens a text occupies.
// Counts need not be exact, but must be stable for the same input.
type TokenEstimator interface {
	// CountTokens returns the estimated token count of text.
	CountTokens(ctx context.Context, text string) (int, error)

	// Name identifies the estimator (e.g. "heuristic", "tiktoken/cl100k_base").
	Name() string
}
