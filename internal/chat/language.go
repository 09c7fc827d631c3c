package chat

import "unicode"

// LanguageKind tags the outcome of DetectLanguage.
type LanguageKind string

const (
	LanguageKnown   LanguageKind = "known"
	LanguageUnknown LanguageKind = "unknown"
)

// Language is either a known ISO 639-1 code or unknown. Latin-script text is
// always unknown; the model is told to mirror the user's language instead.
type Language struct {
	Kind LanguageKind `json:"kind"`
	Code string       `json:"code,omitempty"`
}

type script struct {
	code  string
	table *unicode.RangeTable
}

// Kana is checked separately so Japanese text with kanji is not classified as Chinese.
var scripts = []script{
	{code: "ar", table: unicode.Arabic},
	{code: "hi", table: unicode.Devanagari},
	{code: "zh", table: unicode.Han},
	{code: "ko", table: unicode.Hangul},
	{code: "ru", table: unicode.Cyrillic},
	{code: "he", table: unicode.Hebrew},
	{code: "th", table: unicode.Thai},
	{code: "el", table: unicode.Greek},
	{code: "bn", table: unicode.Bengali},
	{code: "ta", table: unicode.Tamil},
}

var languageNames = map[string]string{
	"ar": "Arabic",
	"hi": "Hindi",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ru": "Russian",
	"he": "Hebrew",
	"th": "Thai",
	"el": "Greek",
	"bn": "Bengali",
	"ta": "Tamil",
}

// DetectLanguage classifies text by the Unicode script with the most letters.
func DetectLanguage(text string) Language {
	counts := make(map[string]int, len(scripts))
	kana := 0
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana) {
			kana++
			continue
		}
		for _, s := range scripts {
			if unicode.Is(s.table, r) {
				counts[s.code]++
				break
			}
		}
	}
	if kana > 0 {
		return Language{Kind: LanguageKnown, Code: "ja"}
	}

	best, bestCount := "", 0
	for _, s := range scripts {
		if n := counts[s.code]; n > bestCount {
			best, bestCount = s.code, n
		}
	}
	if best == "" {
		return Language{Kind: LanguageUnknown}
	}
	return Language{Kind: LanguageKnown, Code: best}
}

// Name returns the English name of a known language, or "".
func (l Language) Name() string {
	if l.Kind != LanguageKnown {
		return ""
	}
	return languageNames[l.Code]
}
