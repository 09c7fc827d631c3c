package llm

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	doubleStar       = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	doubleUnderscore = regexp.MustCompile(`__([^_\n]+?)__`)
	starBullet       = regexp.MustCompile(`(?m)^([ \t]*)\*[ \t]+`)
	emptyBold        = regexp.MustCompile(`<b>\s*</b>`)
	htmlTag          = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9]*(?:\s[^<>]*)?/?>`)
)

// CleanEmphasis rewrites markdown strong markers into <b> tags and removes
// leftover '*' and markup '_' characters outside of tags. Underscores between
// two letters or digits (snake_case, file names) are kept.
func CleanEmphasis(text string) string {
	out := doubleStar.ReplaceAllString(text, "<b>$1</b>")
	out = doubleUnderscore.ReplaceAllString(out, "<b>$1</b>")
	out = starBullet.ReplaceAllString(out, "$1- ")
	out = stripStray(out)
	out = emptyBold.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

func stripStray(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, span := range htmlTag.FindAllStringIndex(s, -1) {
		b.WriteString(stripMarkers(s[last:span[0]]))
		b.WriteString(s[span[0]:span[1]])
		last = span[1]
	}
	b.WriteString(stripMarkers(s[last:]))
	return b.String()
}

func stripMarkers(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		switch r {
		case '*':
			continue
		case '_':
			if i == 0 || i == len(runes)-1 || !isWordRune(runes[i-1]) || !isWordRune(runes[i+1]) {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
