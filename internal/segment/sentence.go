package segment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Sentence is a trimmed, non-empty sentence and its position in the document.
type Sentence struct {
	Index int
	Text  string
}

// SentenceSplitter splits normalised text into ordered sentences.
type SentenceSplitter interface {
	// Name identifies the strategy in logs and configuration.
	Name() string

	// Split returns the non-empty trimmed sentences of text in order.
	Split(text string) []Sentence
}

// Splitter names accepted by SplitterByName.
const (
	SplitterAuto    = "auto"
	SplitterUnicode = "unicode"
	SplitterRegex   = "regex"
)

// UnicodeSplitter finds sentence boundaries with the Unicode text
// segmentation rules (UAX #29).
type UnicodeSplitter struct{}

// Name returns "unicode".
func (UnicodeSplitter) Name() string { return SplitterUnicode }

// Split implements SentenceSplitter.
func (UnicodeSplitter) Split(text string) []Sentence {
	var out []Sentence
	state := -1
	rest := text
	for len(rest) > 0 {
		var sentence string
		sentence, rest, state = uniseg.FirstSentenceInString(rest, state)
		out = appendSentence(out, sentence)
	}
	return out
}

// sentenceEnd matches terminal punctuation followed by whitespace and the
// start of a new sentence: a capital letter, a digit or an opening quote.
var sentenceEnd = regexp.MustCompile(`[.?!]\s+["'\x{201C}\x{2018}\p{Lu}\d]`)

// RegexSplitter is the fallback strategy used when Unicode segmentation is
// unavailable.
type RegexSplitter struct{}

// Name returns "regex".
func (RegexSplitter) Name() string { return SplitterRegex }

// Split implements SentenceSplitter.
func (RegexSplitter) Split(text string) []Sentence {
	var out []Sentence
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// Cut right after the punctuation; the next sentence keeps its
		// leading capital, digit or quote.
		cut := loc[0] + 1
		out = appendSentence(out, text[start:cut])
		start = cut
	}
	return appendSentence(out, text[start:])
}

func appendSentence(out []Sentence, s string) []Sentence {
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	return append(out, Sentence{Index: len(out), Text: s})
}

// probeText has two unambiguous sentences; a working splitter must find both.
const probeText = "Sentence segmentation probe. It has two sentences."

// DetectSplitter probes the Unicode strategy once and returns it when it
// works, otherwise the regex fallback. Call at startup and inject the
// result into the Segmenter.
func DetectSplitter() SentenceSplitter {
	var unicode UnicodeSplitter
	if len(unicode.Split(probeText)) == 2 {
		return unicode
	}
	return RegexSplitter{}
}

// ResolveSplitter returns detected for "" and "auto", so callers reuse the
// strategy probed at startup, and the named strategy otherwise.
func ResolveSplitter(name string, detected SentenceSplitter) (SentenceSplitter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SplitterAuto:
		if detected != nil {
			return detected, nil
		}
	}
	return SplitterByName(name)
}

// SplitterByName returns the named strategy. "auto" and "" run DetectSplitter.
func SplitterByName(name string) (SentenceSplitter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SplitterAuto:
		return DetectSplitter(), nil
	case SplitterUnicode:
		return UnicodeSplitter{}, nil
	case SplitterRegex:
		return RegexSplitter{}, nil
	default:
		return nil, fmt.Errorf("%w: sentence splitter %q", domain.ErrUnsupportedType, name)
	}
}
