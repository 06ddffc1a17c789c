package extractor

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()

	// Block-level closers become line breaks so "Label: value" rows in
	// table exports stay on their own lines.
	htmlBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|tr|li|h[1-6]|table|section)>`)
	htmlCellPattern  = regexp.MustCompile(`(?i)</t[dh]>`)
	blankRunPattern  = regexp.MustCompile(`\n[ \t]*(?:\n[ \t]*)+`)
	spaceRunPattern  = regexp.MustCompile(`[ \t\x{00A0}]+`)
)

// HTMLToText strips markup from a bureau's HTML export and returns text
// with one logical row per line.
func HTMLToText(doc string) string {
	doc = htmlBreakPattern.ReplaceAllString(doc, "\n")
	doc = htmlCellPattern.ReplaceAllString(doc, " ")
	text := html.UnescapeString(strictPolicy.Sanitize(doc))

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRunPattern.ReplaceAllString(l, " "))
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankRunPattern.ReplaceAllString(text, "\n\n"))
}
