package translator

import "context"

// UnknownLanguage is reported when the source language of a transcript cannot be determined.
const UnknownLanguage = "unknown"

type Request struct {
	// ContextText holds the recent transcript lines, oldest first; the last line is the one to translate.
	ContextText    string
	SourceLanguage string
	TargetLanguage string
	Style          Style
}

type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

type Detector interface {
	Detect(ctx context.Context, text string) (string, error)
}

type Analysis struct {
	Category string `json:"category"`
	Summary  string `json:"summary"`
}

// Analyzer produces best-effort enrichment about what the stream is currently about.
type Analyzer interface {
	Analyze(ctx context.Context, lines []string) (Analysis, error)
}
