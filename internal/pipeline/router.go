package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/jimaku/internal/broadcast"
	"github.com/foxseedlab/jimaku/internal/listener"
	"github.com/foxseedlab/jimaku/internal/translator"
	"golang.org/x/sync/errgroup"
)

const DefaultTranslationConcurrency = 4

// Delivery is one subtitle addressed to one listener.
type Delivery struct {
	ConnectionID string
	Subtitle     broadcast.Subtitle
}

type RouterConfig struct {
	Timeout     time.Duration
	Concurrency int
}

// Router detects the language of a transcript and produces a subtitle per listener,
// translating only for listeners whose target language differs from the source.
type Router struct {
	detector   translator.Detector
	translator translator.Translator
	refusals   translator.RefusalMatcher
	cfg        RouterConfig
}

func NewRouter(detector translator.Detector, tr translator.Translator, refusals translator.RefusalMatcher, cfg RouterConfig) *Router {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultTranslationConcurrency
	}
	return &Router{detector: detector, translator: tr, refusals: refusals, cfg: cfg}
}

// translationKey groups listeners that would receive an identical translation.
type translationKey struct {
	target string
	style  translator.Style
}

// Route returns the deliveries for t in listener order. Listeners whose translation failed,
// came back empty or was a refusal get nothing.
func (r *Router) Route(ctx context.Context, t Transcript, contextText string, listeners []listener.Settings) []Delivery {
	if len(listeners) == 0 {
		return nil
	}
	source := r.detect(ctx, t)

	translations := make(map[translationKey]string)
	var pending []translationKey
	for _, l := range listeners {
		if translator.SameLanguage(source, l.TargetLanguage) {
			continue
		}
		key := translationKey{target: l.TargetLanguage, style: l.Style.Resolve()}
		if _, seen := translations[key]; seen {
			continue
		}
		translations[key] = ""
		pending = append(pending, key)
	}

	results := make([]string, len(pending))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, key := range pending {
		g.Go(func() error {
			results[i] = r.translate(ctx, t, contextText, source, key)
			return nil
		})
	}
	_ = g.Wait()
	for i, key := range pending {
		translations[key] = results[i]
	}

	deliveries := make([]Delivery, 0, len(listeners))
	for _, l := range listeners {
		style := l.Style.Resolve()
		translated := t.Text
		if !translator.SameLanguage(source, l.TargetLanguage) {
			translated = translations[translationKey{target: l.TargetLanguage, style: style}]
			if translated == "" {
				continue
			}
		}
		deliveries = append(deliveries, Delivery{
			ConnectionID: l.ConnectionID,
			Subtitle: broadcast.Subtitle{
				Seq:            t.Seq,
				Original:       t.Text,
				Translated:     translated,
				SourceLanguage: source,
				TargetLanguage: l.TargetLanguage,
				Style:          string(style),
			},
		})
	}
	return deliveries
}

func (r *Router) detect(ctx context.Context, t Transcript) string {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	code, err := r.detector.Detect(ctx, t.Text)
	if err != nil {
		slog.Warn("language detection failed", "seq", t.Seq, "error", err)
		return translator.UnknownLanguage
	}
	return translator.NormalizeLanguage(code)
}

// translate returns the trimmed translation, or "" when it must not be delivered.
func (r *Router) translate(ctx context.Context, t Transcript, contextText, source string, key translationKey) string {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	out, err := r.translator.Translate(ctx, translator.Request{
		ContextText:    contextText,
		SourceLanguage: source,
		TargetLanguage: key.target,
		Style:          key.style,
	})
	if err != nil {
		slog.Warn("translation failed", "seq", t.Seq, "target_language", key.target, "style", key.style, "error", err)
		return ""
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return ""
	}
	if r.refusals != nil && r.refusals.IsRefusal(key.target, out) {
		slog.Info("suppressed refused translation", "seq", t.Seq, "target_language", key.target)
		return ""
	}
	return out
}

func (r *Router) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.Timeout)
}
