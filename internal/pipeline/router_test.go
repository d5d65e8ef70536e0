package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foxseedlab/jimaku/internal/broadcast"
	"github.com/foxseedlab/jimaku/internal/listener"
	"github.com/foxseedlab/jimaku/internal/translator"
	"github.com/google/go-cmp/cmp"
)

func newTestRouter(det translator.Detector, tr translator.Translator) *Router {
	return NewRouter(det, tr, translator.NewPatternRefusalMatcher(), RouterConfig{Timeout: time.Second, Concurrency: 2})
}

func TestRouter_SameLanguageBypassesTranslation(t *testing.T) {
	tr := &fakeTranslator{}
	r := newTestRouter(&fakeDetector{code: "en"}, tr)

	got := r.Route(context.Background(), Transcript{Seq: 1, Text: "hello"}, "hello", []listener.Settings{
		{ConnectionID: "A", TargetLanguage: "en-US", Style: translator.StyleSerious},
	})

	want := []Delivery{{
		ConnectionID: "A",
		Subtitle: broadcast.Subtitle{
			Seq: 1, Original: "hello", Translated: "hello",
			SourceLanguage: "en", TargetLanguage: "en-US", Style: "serious",
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected deliveries (-want +got):\n%s", diff)
	}
	if tr.requestCount() != 0 {
		t.Fatalf("expected translator not to be called, got %d calls", tr.requestCount())
	}
}

func TestRouter_TranslatesWithListenerSettings(t *testing.T) {
	tr := &fakeTranslator{replies: map[string]string{"ja": "  こんにちは\n"}}
	r := newTestRouter(&fakeDetector{code: "en"}, tr)

	got := r.Route(context.Background(), Transcript{Seq: 1, Text: "hello"}, "hello", []listener.Settings{
		{ConnectionID: "A", TargetLanguage: "ja", Style: translator.StyleCasual},
	})

	wantReq := translator.Request{ContextText: "hello", SourceLanguage: "en", TargetLanguage: "ja", Style: translator.StyleCasual}
	if diff := cmp.Diff([]translator.Request{wantReq}, tr.requests); diff != "" {
		t.Fatalf("unexpected translator requests (-want +got):\n%s", diff)
	}
	if len(got) != 1 || got[0].Subtitle.Translated != "こんにちは" || got[0].Subtitle.Original != "hello" {
		t.Fatalf("unexpected deliveries: %+v", got)
	}
}

func TestRouter_SuppressesEmptyAndRefusedTranslations(t *testing.T) {
	tr := &fakeTranslator{replies: map[string]string{
		"ja": "   ",
		"fr": "I'm sorry, I cannot translate that.",
		"de": "Hallo",
	}}
	r := newTestRouter(&fakeDetector{code: "en"}, tr)

	got := r.Route(context.Background(), Transcript{Text: "hello"}, "hello", []listener.Settings{
		{ConnectionID: "A", TargetLanguage: "ja", Style: translator.StyleSerious},
		{ConnectionID: "B", TargetLanguage: "fr", Style: translator.StyleSerious},
		{ConnectionID: "C", TargetLanguage: "de", Style: translator.StyleSerious},
	})
	if len(got) != 1 || got[0].ConnectionID != "C" {
		t.Fatalf("expected only C to receive a subtitle, got %+v", got)
	}
}

func TestRouter_FailedTranslationIsIsolated(t *testing.T) {
	tr := &fakeTranslator{errs: map[string]error{"ja": errBoom}}
	r := newTestRouter(&fakeDetector{code: "en"}, tr)

	got := r.Route(context.Background(), Transcript{Text: "hello"}, "hello", []listener.Settings{
		{ConnectionID: "A", TargetLanguage: "ja", Style: translator.StyleSerious},
		{ConnectionID: "B", TargetLanguage: "en", Style: translator.StyleSerious},
		{ConnectionID: "C", TargetLanguage: "ko", Style: translator.StyleSerious},
	})
	ids := make([]string, 0, len(got))
	for _, d := range got {
		ids = append(ids, d.ConnectionID)
	}
	if diff := cmp.Diff([]string{"B", "C"}, ids); diff != "" {
		t.Fatalf("unexpected recipients (-want +got):\n%s", diff)
	}
}

func TestRouter_UnknownStyleFallsBackToSerious(t *testing.T) {
	tr := &fakeTranslator{}
	r := newTestRouter(&fakeDetector{code: "en"}, tr)

	got := r.Route(context.Background(), Transcript{Text: "hello"}, "hello", []listener.Settings{
		{ConnectionID: "A", TargetLanguage: "ja", Style: translator.Style("poetic")},
	})
	if tr.requests[0].Style != translator.StyleSerious {
		t.Fatalf("expected serious style, got %q", tr.requests[0].Style)
	}
	if got[0].Subtitle.Style != "serious" {
		t.Fatalf("unexpected delivered style: %q", got[0].Subtitle.Style)
	}
}

func TestRouter_DetectionFailureTranslatesForEveryone(t *testing.T) {
	tr := &fakeTranslator{}
	r := newTestRouter(&fakeDetector{err: errBoom}, tr)

	got := r.Route(context.Background(), Transcript{Text: "hello"}, "hello", []listener.Settings{
		{ConnectionID: "A", TargetLanguage: "en", Style: translator.StyleSerious},
	})
	if tr.requestCount() != 1 {
		t.Fatalf("expected a translation when the source is unknown, got %d calls", tr.requestCount())
	}
	if got[0].Subtitle.SourceLanguage != translator.UnknownLanguage {
		t.Fatalf("unexpected source language: %q", got[0].Subtitle.SourceLanguage)
	}
}

func TestRouter_SharesTranslationBetweenIdenticalSettings(t *testing.T) {
	tr := &fakeTranslator{}
	r := newTestRouter(&fakeDetector{code: "en"}, tr)

	got := r.Route(context.Background(), Transcript{Text: "hello"}, "hello", []listener.Settings{
		{ConnectionID: "A", TargetLanguage: "ja", Style: translator.StyleCasual},
		{ConnectionID: "B", TargetLanguage: "ja", Style: translator.StyleCasual},
		{ConnectionID: "C", TargetLanguage: "ja", Style: translator.StyleExpert},
	})
	if tr.requestCount() != 2 {
		t.Fatalf("expected one call per distinct target and style, got %d", tr.requestCount())
	}
	if len(got) != 3 || got[0].Subtitle.Translated != got[1].Subtitle.Translated {
		t.Fatalf("unexpected deliveries: %+v", got)
	}
}

func TestRouter_BoundsConcurrentTranslations(t *testing.T) {
	var inFlight, peak atomic.Int32
	tr := &fakeTranslator{onCall: func() {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
	}}
	r := newTestRouter(&fakeDetector{code: "en"}, tr)

	var listeners []listener.Settings
	for _, lang := range []string{"ja", "fr", "de", "ko", "es"} {
		listeners = append(listeners, listener.Settings{ConnectionID: lang, TargetLanguage: lang, Style: translator.StyleSerious})
	}
	got := r.Route(context.Background(), Transcript{Text: "hello"}, "hello", listeners)
	if len(got) != 5 {
		t.Fatalf("expected five deliveries, got %d", len(got))
	}
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent translations, saw %d", peak.Load())
	}
}

func TestRouter_NoListenersSkipsDetection(t *testing.T) {
	r := newTestRouter(&fakeDetector{err: errBoom}, &fakeTranslator{})
	if got := r.Route(context.Background(), Transcript{Text: "hello"}, "hello", nil); got != nil {
		t.Fatalf("expected no deliveries, got %+v", got)
	}
}
