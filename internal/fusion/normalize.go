package fusion

import (
	"sort"
)

// ScoredItem is one entry of a modality's ranked result list.
type ScoredItem struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NormalizedItem carries a score min-max normalised into [0, 1].
type NormalizedItem struct {
	ID    string
	Score float64
}

// Normalize min-max normalises the scores of one modality. A flat list maps
// to all ones, or all zeros when every score is zero.
func Normalize(items []ScoredItem) []NormalizedItem {
	if len(items) == 0 {
		return nil
	}
	lo, hi := items[0].Score, items[0].Score
	for _, item := range items[1:] {
		lo = min(lo, item.Score)
		hi = max(hi, item.Score)
	}

	denom := hi - lo
	out := make([]NormalizedItem, len(items))
	for i, item := range items {
		score := 0.0
		switch {
		case denom != 0:
			score = (item.Score - lo) / denom
		case hi != 0:
			score = 1
		}
		out[i] = NormalizedItem{ID: item.ID, Score: score}
	}
	return out
}

// Confidence returns the mean of the k highest normalised scores. k is
// clipped to the number of items; an empty list has confidence 0.
func Confidence(items []NormalizedItem, k int) float64 {
	if len(items) == 0 || k <= 0 {
		return 0
	}
	scores := make([]float64, len(items))
	for i, item := range items {
		scores[i] = item.Score
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	k = min(k, len(scores))
	var sum float64
	for _, s := range scores[:k] {
		sum += s
	}
	return sum / float64(k)
}
