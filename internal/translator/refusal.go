package translator

import "strings"

// anyLanguage keys refusal patterns that apply to every target language.
const anyLanguage = "*"

var defaultRefusalPatterns = map[string][]string{
	anyLanguage: {
		"i'm sorry",
		"i am sorry",
		"i cannot translate",
		"i can't translate",
		"as an ai",
	},
	"ja": {
		"申し訳ありません",
		"申し訳ございません",
		"翻訳できません",
		"翻訳することはできません",
	},
}

// RefusalMatcher reports translations in which the engine declined to translate.
type RefusalMatcher interface {
	IsRefusal(targetLanguage, text string) bool
}

// PatternRefusalMatcher matches case-insensitive substrings per target base language.
type PatternRefusalMatcher struct {
	patterns map[string][]string
}

// NewPatternRefusalMatcher builds a matcher from the built-in patterns plus extra patterns
// that apply to every target language.
func NewPatternRefusalMatcher(extra ...string) *PatternRefusalMatcher {
	m := &PatternRefusalMatcher{patterns: make(map[string][]string, len(defaultRefusalPatterns))}
	for lang, list := range defaultRefusalPatterns {
		for _, p := range list {
			m.Add(lang, p)
		}
	}
	for _, p := range extra {
		m.Add(anyLanguage, p)
	}
	return m
}

// Add registers a pattern for a target language; use "*" for all languages.
func (m *PatternRefusalMatcher) Add(language, pattern string) {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return
	}
	key := anyLanguage
	if language != anyLanguage {
		key = NormalizeLanguage(language)
	}
	m.patterns[key] = append(m.patterns[key], pattern)
}

func (m *PatternRefusalMatcher) IsRefusal(targetLanguage, text string) bool {
	lower := strings.ToLower(text)
	for _, key := range []string{anyLanguage, NormalizeLanguage(targetLanguage)} {
		for _, p := range m.patterns[key] {
			if strings.Contains(lower, p) {
				return true
			}
		}
	}
	return false
}
