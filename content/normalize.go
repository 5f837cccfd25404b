package content

import (
	"regexp"
	"strings"
)

var (
	trailingSpace = regexp.MustCompile(`[ \t\r]+\n`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans rendered markdown: trailing whitespace is stripped from
// every line, runs of blank lines collapse to one, and the document is
// trimmed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(markdown string) string {
	// Trailing whitespace goes first, otherwise whitespace-only lines would
	// become new newline runs after the collapse.
	markdown = trailingSpace.ReplaceAllString(markdown, "\n")
	markdown = blankLines.ReplaceAllString(markdown, "\n\n")

	return strings.TrimSpace(markdown)
}
