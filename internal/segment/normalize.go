package segment

import (
	"regexp"
	"strings"
)

var (
	carriageReturns = regexp.MustCompile(`\r\n?`)
	trailingSpace   = regexp.MustCompile(`[ \t\f\v]+\n`)
)

// NormalizeText converts line endings to LF, drops whitespace that trails a
// line and trims the result.
func NormalizeText(text string) string {
	text = carriageReturns.ReplaceAllString(text, "\n")
	text = trailingSpace.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
