package segment

import "math"

// flatThresholdOffset is subtracted from the mean when the smoothed
// similarities have no spread.
const flatThresholdOffset = 0.05

// minSentencesPerSegment is the minimum spacing between breakpoints and the
// minimum number of sentences left after the last one.
const minSentencesPerSegment = 2

// BoundaryParams tunes DetectBreakpoints.
type BoundaryParams struct {
	// DropThreshold is the smoothed similarity drop that marks a topic shift.
	DropThreshold float64

	// StdMultiplier is k in mean - k*std.
	StdMultiplier float64

	// Radius is the moving-average radius.
	Radius int
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or zero magnitude have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// adjacentSimilarities returns S[i] = cos(e[i], e[i+1]).
func adjacentSimilarities(embeddings [][]float32) []float64 {
	if len(embeddings) < 2 {
		return nil
	}
	sims := make([]float64, len(embeddings)-1)
	for i := range sims {
		sims[i] = CosineSimilarity(embeddings[i], embeddings[i+1])
	}
	return sims
}

// smooth applies a symmetric moving average of the given radius, clipping the
// window at both ends of the series.
func smooth(values []float64, radius int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		lo := max(0, i-radius)
		hi := min(len(values)-1, i+radius)
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// meanStd returns the mean and population standard deviation of values.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// similarityThreshold computes clamp(mean - k*std, -1, mean), using
// mean - 0.05 when the series is flat.
func similarityThreshold(mean, std, k float64) float64 {
	dynamic := mean - flatThresholdOffset
	if std > 0 {
		dynamic = mean - k*std
	}
	return math.Max(-1, math.Min(dynamic, mean))
}

// DetectBreakpoints returns the sentence indices at which a new segment
// starts. Indices are strictly increasing, at least two sentences apart, and
// always leave at least two trailing sentences.
func DetectBreakpoints(embeddings [][]float32, p BoundaryParams) []int {
	n := len(embeddings)
	sims := adjacentSimilarities(embeddings)
	if len(sims) == 0 {
		return nil
	}

	smoothed := smooth(sims, max(0, p.Radius))
	mean, std := meanStd(smoothed)
	threshold := similarityThreshold(mean, std, p.StdMultiplier)

	var breakpoints []int
	last := 0
	for i, cur := range smoothed {
		prev := mean
		if i > 0 {
			prev = smoothed[i-1]
		}
		drop := prev - cur
		shifted := (drop > p.DropThreshold && cur < prev) || cur < threshold
		if !shifted {
			continue
		}
		candidate := i + 1
		if candidate-last < minSentencesPerSegment || n-candidate < minSentencesPerSegment {
			continue
		}
		breakpoints = append(breakpoints, candidate)
		last = candidate
	}
	return breakpoints
}
