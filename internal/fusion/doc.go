// Package fusion merges independently ranked result lists from two
// modalities (for example text and image retrieval) into one ranked list.
//
// The weighted strategy min-max normalises each list, estimates a confidence
// per modality from its top-K normalised scores, turns the two confidences
// into weights with a softmax and sums the weighted scores of items that
// share an ID. The reciprocal rank strategy ignores scores and ranks by
// 1/(k+rank).
//
// All functions are pure and safe for concurrent use.
package fusion
