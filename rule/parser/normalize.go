package parser

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	spaceAfterOpen = regexp.MustCompile(`\(\s+`)
	spaceBeforeEnd = regexp.MustCompile(`\s+\)`)
)

// Normalize collapses whitespace runs to a single space, removes spaces right
// after "(" and right before ")", and trims the result.
func Normalize(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = spaceAfterOpen.ReplaceAllString(text, "(")
	text = spaceBeforeEnd.ReplaceAllString(text, ")")
	return strings.TrimSpace(text)
}
