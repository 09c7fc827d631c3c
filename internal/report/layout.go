package report

import (
	"html"
	"regexp"
	"strings"
)

// Page geometry for A4 portrait in millimetres.
const (
	pageWidth     = 210.0
	pageHeight    = 297.0
	marginLeft    = 15.0
	marginRight   = 15.0
	marginTop     = 15.0
	marginBottom  = 20.0
	contentWidth  = pageWidth - marginLeft - marginRight
	contentBottom = pageHeight - marginBottom
	lineHeight    = 6.0
	headingHeight = 8.0
	bulletIndent  = 5.0
	footerOffset  = 12.0

	// MaxImageHeight caps the rendered image height.
	MaxImageHeight = 100.0
)

// ContentWidth is the printable width of a page.
func ContentWidth() float64 { return contentWidth }

// LinesPerPage is how many body lines fit between the top and bottom margins.
func LinesPerPage() int {
	usable := contentBottom - marginTop
	return int(usable / lineHeight)
}

// ScaleToFit returns the largest size with the image's aspect ratio that fits
// inside maxW x maxH. Width is tried first; height wins when it overflows.
func ScaleToFit(imgW, imgH, maxW, maxH float64) (float64, float64) {
	if imgW <= 0 || imgH <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	aspect := imgW / imgH
	w := maxW
	h := w / aspect
	if h > maxH {
		h = maxH
		w = h * aspect
	}
	if w > maxW {
		w = maxW
		h = w / aspect
	}
	return w, h
}

// LineKind is the block-level role of one line of result text.
type LineKind int

const (
	LineText LineKind = iota
	LineBlank
	LineHeading
	LineBullet
	LineNumbered
	LineCodeFence
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineHeading:
		return "heading"
	case LineBullet:
		return "bullet"
	case LineNumbered:
		return "numbered"
	case LineCodeFence:
		return "code fence"
	default:
		return "text"
	}
}

var (
	// A tag needs a name right after '<' so comparisons like "T-score < -2.5" survive.
	tagPattern      = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9]*(?:\s[^<>]*)?/?>`)
	breakPattern    = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</li>`)
	numberedPattern = regexp.MustCompile(`^\d{1,3}[.)]\s+`)
	bulletMarkers   = []string{"- ", "• ", "* ", "+ ", "– "}
	headingLabels   = map[string]struct{}{
		"findings":            {},
		"impression":          {},
		"recommendations":     {},
		"recommendation":      {},
		"assessment":          {},
		"summary":             {},
		"conclusion":          {},
		"diagnosis":           {},
		"observations":        {},
		"next steps":          {},
		"key findings":        {},
		"clinical notes":      {},
		"differential":        {},
		"limitations":         {},
		"technical quality":   {},
		"analysis results":    {},
		"important note":      {},
		"disclaimer":          {},
		"measurements":        {},
		"overall impression":  {},
		"suggested follow-up": {},
	}
)

// ClassifyLine recognises headings, list items, code fences and blanks.
// HTML tags are ignored for classification.
func ClassifyLine(line string) LineKind {
	plain := strings.TrimSpace(StripHTML(line))
	switch {
	case plain == "":
		return LineBlank
	case strings.HasPrefix(plain, "```") || strings.HasPrefix(plain, "~~~"):
		return LineCodeFence
	case strings.HasPrefix(plain, "#"):
		return LineHeading
	case numberedPattern.MatchString(plain):
		return LineNumbered
	}
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(plain, marker) {
			return LineBullet
		}
	}
	label := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(plain, ":")))
	if _, ok := headingLabels[label]; ok {
		return LineHeading
	}
	return LineText
}

// StripHTML removes tags and unescapes entities.
func StripHTML(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}

// SplitLines turns section content into logical lines, treating <br>, </p>
// and </li> as line breaks.
func SplitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = breakPattern.ReplaceAllString(content, "\n")
	return strings.Split(content, "\n")
}

func headingText(line string) string {
	plain := strings.TrimSpace(StripHTML(line))
	plain = strings.TrimLeft(plain, "#")
	return strings.TrimSpace(plain)
}

var latinReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "“", "\"", "”", "\"",
	"–", "-", "—", "-", "•", "·", "…", "...",
	"≤", "<=", "≥", ">=", "→", "->", "\t", "    ",
)

// toLatin1 keeps only what the core PDF fonts can draw.
func toLatin1(s string) string {
	s = latinReplacer.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 0x20 && r <= 0x7e, r >= 0xa0 && r <= 0xff:
			b.WriteRune(r)
		case r < 0x20, r >= 0x7f && r < 0xa0:
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
