package translator

type Style string

const (
	StyleSerious  Style = "serious"
	StyleCasual   Style = "casual"
	StyleHumorous Style = "humorous"
	StyleExpert   Style = "expert"

	DefaultStyle = StyleSerious
)

const noEmbellishment = "Never add information that is not in the source, and never complete or invent sentences: translate only the fragment you were given."

var styleInstructions = map[Style]string{
	StyleSerious:  "You are a professional simultaneous interpreter. Translate the speech faithfully and accurately in a formal register. " + noEmbellishment,
	StyleCasual:   "You are a close friend watching a live stream together with the listener. Translate what is said in a very casual, friendly tone, render slang naturally and use emoji to convey emotion. " + noEmbellishment,
	StyleHumorous: "You are a translator with a great sense of humour. Keep the speaker's intent but translate playfully, adding a light joke or quip where it fits. " + noEmbellishment,
	StyleExpert:   "You are a domain expert. Translate technical terms and complex ideas precisely so that specialists in the field would find the result accurate and clear. " + noEmbellishment,
}

// Styles returns the known style identifiers in display order.
func Styles() []Style {
	return []Style{StyleSerious, StyleCasual, StyleHumorous, StyleExpert}
}

func (s Style) Known() bool {
	_, ok := styleInstructions[s]
	return ok
}

// Resolve returns s if it is a known style and DefaultStyle otherwise.
func (s Style) Resolve() Style {
	if s.Known() {
		return s
	}
	return DefaultStyle
}

// Instruction returns the tone instruction for s, falling back to DefaultStyle.
func (s Style) Instruction() string {
	return styleInstructions[s.Resolve()]
}
