// Package tokenizer selects a token estimator from settings.
//
// Estimators:
//   - heuristic: one token per four runes, no dependencies
//   - tiktoken: BPE counts via tiktoken-go (cl100k_base by default)
package tokenizer
