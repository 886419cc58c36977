package segment

import "strings"

// Segment is a run of consecutive sentences between two breakpoints.
type Segment struct {
	// Text is the sentences joined with single spaces.
	Text string

	// SentenceCount is the number of sentences in the segment.
	SentenceCount int
}

// BuildSegments slices sentences at the given breakpoints. Breakpoints that
// are out of range or not increasing are ignored; empty slices are dropped.
func BuildSegments(sentences []Sentence, breakpoints []int) []Segment {
	segments := make([]Segment, 0, len(breakpoints)+1)
	start := 0
	for _, bp := range breakpoints {
		if bp <= start || bp >= len(sentences) {
			continue
		}
		segments = appendSegment(segments, sentences[start:bp])
		start = bp
	}
	return appendSegment(segments, sentences[start:])
}

func appendSegment(segments []Segment, sentences []Sentence) []Segment {
	if len(sentences) == 0 {
		return segments
	}
	parts := make([]string, len(sentences))
	for i, s := range sentences {
		parts[i] = s.Text
	}
	return append(segments, Segment{
		Text:          strings.Join(parts, " "),
		SentenceCount: len(sentences),
	})
}
