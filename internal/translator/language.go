package translator

import (
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLanguage reduces a language tag to its lowercase base language ("en-US" -> "en").
// Unparseable or empty input yields UnknownLanguage.
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, UnknownLanguage) {
		return UnknownLanguage
	}
	tag, err := language.Parse(code)
	if err != nil {
		return UnknownLanguage
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return UnknownLanguage
	}
	return base.String()
}

// SameLanguage reports whether two tags share a known base language.
func SameLanguage(a, b string) bool {
	na, nb := NormalizeLanguage(a), NormalizeLanguage(b)
	return na != UnknownLanguage && na == nb
}
