// Package sanitize cleans free text that users attach to runs. Labels are
// stored in the run history and echoed into markdown tables and terminal
// output, so they are reduced to a single line of plain text.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLabelLength is the maximum allowed length of a run label, in runes.
const MaxLabelLength = 80

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reBackticks matches any run of backticks.
	reBackticks = regexp.MustCompile("`+")

	// reWhitespace matches runs of whitespace.
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Label sanitizes a run label.
//
// The pipeline runs in this order:
//  1. Turn newlines and tabs into spaces and drop other control characters
//  2. Strip XML/HTML tags
//  3. Replace table pipes with slashes and drop backticks
//  4. Collapse whitespace and trim
//  5. Truncate to MaxLabelLength runes
func Label(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "|", "/")
	s = reBackticks.ReplaceAllString(s, "")
	s = strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))

	if utf8.RuneCountInString(s) > MaxLabelLength {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:MaxLabelLength]))
	}
	return s
}

// stripControlChars replaces newline and tab with a space and removes every
// other ASCII control character (0x00-0x1F, 0x7F).
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
