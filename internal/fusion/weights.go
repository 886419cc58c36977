package fusion

import "math"

// ModalityWeights turns the confidences of two modalities into weights that
// sum to 1. An empty modality gets weight 0; two empty modalities split
// evenly.
func ModalityWeights(confA, confB float64, emptyA, emptyB bool) (weightA, weightB float64) {
	switch {
	case emptyA && emptyB:
		return 0.5, 0.5
	case emptyA:
		return 0, 1
	case emptyB:
		return 1, 0
	}

	// Subtract the max before exponentiating.
	m := math.Max(confA, confB)
	expA := math.Exp(confA - m)
	expB := math.Exp(confB - m)
	sum := expA + expB
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0.5, 0.5
	}
	return expA / sum, expB / sum
}
