package fusion

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DefaultTopK is the default number of scores averaged into a confidence.
const DefaultTopK = 5

// DefaultRRFConstant is the default k for reciprocal rank fusion.
const DefaultRRFConstant = 60

// Result is one fused, deduplicated entry.
type Result struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Options controls Combine.
type Options struct {
	// TopK is the number of normalised scores averaged into a modality's
	// confidence. Zero or less means DefaultTopK.
	TopK int

	// Limit caps the number of results. Zero or less means no cap.
	Limit int
}

// Weights reports the weights Combine assigned to each modality.
type Weights struct {
	Primary   float64
	Secondary float64
}

// Combine fuses a primary and a secondary result list with confidence
// weights. Items sharing an ID have their weighted scores summed. Metadata
// comes from the primary item unless it has none.
//
// When one list is empty the other is returned with its raw scores, sorted
// and truncated to the limit.
func Combine(primary, secondary []ScoredItem, opts Options) []Result {
	results, _ := CombineWeights(primary, secondary, opts)
	return results
}

// CombineWeights is Combine that also returns the modality weights used.
func CombineWeights(primary, secondary []ScoredItem, opts Options) ([]Result, Weights) {
	primary, secondary = dedupe(primary), dedupe(secondary)
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	switch {
	case len(primary) == 0 && len(secondary) == 0:
		return nil, Weights{Primary: 0.5, Secondary: 0.5}
	case len(secondary) == 0:
		return passThrough(primary, opts.Limit), Weights{Primary: 1}
	case len(primary) == 0:
		return passThrough(secondary, opts.Limit), Weights{Secondary: 1}
	}

	normPrimary := Normalize(primary)
	normSecondary := Normalize(secondary)
	wp, ws := ModalityWeights(Confidence(normPrimary, topK), Confidence(normSecondary, topK), false, false)

	merged := newMerger(len(primary) + len(secondary))
	for i, item := range primary {
		merged.add(item, wp*normPrimary[i].Score, true)
	}
	for i, item := range secondary {
		merged.add(item, ws*normSecondary[i].Score, false)
	}
	return merged.results(opts.Limit), Weights{Primary: wp, Secondary: ws}
}

// ReciprocalRank fuses two ranked lists by summing 1/(k+rank) per ID, rank
// starting at 1. Input order is the rank; raw scores are ignored.
func ReciprocalRank(primary, secondary []ScoredItem, k, limit int) []Result {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	merged := newMerger(len(primary) + len(secondary))
	for rank, item := range dedupeFirst(primary) {
		merged.add(item, 1.0/float64(k+rank+1), true)
	}
	for rank, item := range dedupeFirst(secondary) {
		merged.add(item, 1.0/float64(k+rank+1), false)
	}
	return merged.results(limit)
}

// Fuse dispatches to the strategy named in settings.
func Fuse(primary, secondary []ScoredItem, settings domain.FusionSettings, limit int) ([]Result, error) {
	switch settings.Strategy {
	case domain.FusionWeighted, "":
		return Combine(primary, secondary, Options{TopK: settings.TopKForConfidence, Limit: limit}), nil
	case domain.FusionRRF:
		return ReciprocalRank(primary, secondary, settings.RRFConstant, limit), nil
	default:
		return nil, fmt.Errorf("fusion: %w: unknown strategy %q", domain.ErrInvalidSettings, settings.Strategy)
	}
}

// merger sums partial scores by ID. Primary items must be added before
// secondary ones.
type merger struct {
	order []string
	byID  map[string]*Result
}

func newMerger(capacity int) *merger {
	return &merger{
		order: make([]string, 0, capacity),
		byID:  make(map[string]*Result, capacity),
	}
}

func (m *merger) add(item ScoredItem, partial float64, primary bool) {
	r, ok := m.byID[item.ID]
	if !ok {
		m.byID[item.ID] = &Result{ID: item.ID, Score: partial, Metadata: domain.CloneMetadata(item.Metadata)}
		m.order = append(m.order, item.ID)
		return
	}
	r.Score += partial
	if len(item.Metadata) > 0 && (primary || len(r.Metadata) == 0) {
		r.Metadata = domain.CloneMetadata(item.Metadata)
	}
}

func (m *merger) results(limit int) []Result {
	out := make([]Result, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.byID[id])
	}
	sortResults(out)
	return truncate(out, limit)
}

func passThrough(items []ScoredItem, limit int) []Result {
	out := make([]Result, len(items))
	for i, item := range items {
		out[i] = Result{ID: item.ID, Score: item.Score, Metadata: domain.CloneMetadata(item.Metadata)}
	}
	sortResults(out)
	return truncate(out, limit)
}

// sortResults orders by score descending, then ID ascending.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

func truncate(results []Result, limit int) []Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

// dedupe keeps the highest-scoring item per ID, in first-seen order.
func dedupe(items []ScoredItem) []ScoredItem {
	idx := make(map[string]int, len(items))
	out := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		if i, ok := idx[item.ID]; ok {
			if item.Score > out[i].Score {
				out[i] = item
			}
			continue
		}
		idx[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}

// dedupeFirst keeps the first (best-ranked) item per ID.
func dedupeFirst(items []ScoredItem) []ScoredItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
