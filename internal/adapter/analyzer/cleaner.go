package analyzer

import (
	"regexp"
	"strings"
)

var (
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,;:?!\-()\[\]{}/'"%$#@&+=*]`)
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	extraNewlines   = regexp.MustCompile(`\n\s*\n\s*\n+`)
	brokenHyphen    = regexp.MustCompile(`([\p{L}\p{N}_])-\s+([\p{L}\p{N}_])`)
	spaceBeforePunc = regexp.MustCompile(`\s+([.,;:!?])`)
)

// Clean normalizes text extracted from the department document before it is
// chunked. Order matters: hyphen repair runs after whitespace has been
// collapsed.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = disallowedChars.ReplaceAllString(text, " ")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	text = brokenHyphen.ReplaceAllString(text, "${1}${2}")
	text = spaceBeforePunc.ReplaceAllString(text, "${1}")

	return strings.TrimSpace(text)
}
