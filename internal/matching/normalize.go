// Package matching maps free-form form labels to profile field keys.
package matching

import (
	"regexp"
	"strings"
)

var (
	// \s, \v, \p{Z} and U+FEFF together are the whitespace set of browser scripts.
	separatorRun = regexp.MustCompile(`[_\-\s\v\p{Z}\x{FEFF}]+`)
	nonWord      = regexp.MustCompile(`[^\w ]`)
	spaceRun     = regexp.MustCompile(` {2,}`)
)

// Normalize returns the canonical comparison form of a label: lower-cased, with runs of
// underscores, hyphens and whitespace collapsed to one space, every other non-word
// character removed, and surrounding space trimmed. "Full_Name", "full name" and
// "Full-Name:" all normalize to "full name".
//
// Normalize is total and idempotent.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = separatorRun.ReplaceAllString(s, " ")
	s = nonWord.ReplaceAllString(s, "")
	// Stripping punctuation between two separators leaves a double space behind.
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
