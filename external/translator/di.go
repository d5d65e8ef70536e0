package translator

import (
	"context"

	"github.com/foxseedlab/jimaku/internal/config"
	"github.com/foxseedlab/jimaku/internal/translator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Gemini, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewGemini(context.Background(), GeminiConfig{APIKey: c.GeminiAPIKey, Model: c.GeminiModel})
	})
	do.Provide(injector, func(i do.Injector) (translator.Translator, error) {
		return do.Invoke[*Gemini](i)
	})
	do.Provide(injector, func(i do.Injector) (translator.Detector, error) {
		return do.Invoke[*Gemini](i)
	})
	do.Provide(injector, func(i do.Injector) (translator.Analyzer, error) {
		return do.Invoke[*Gemini](i)
	})
	do.Provide(injector, func(i do.Injector) (translator.RefusalMatcher, error) {
		c := do.MustInvoke[*config.Config](i)
		return translator.NewPatternRefusalMatcher(c.RefusalPatterns...), nil
	})
}
