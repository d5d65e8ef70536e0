package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/foxseedlab/jimaku/internal/audio"
	"github.com/foxseedlab/jimaku/internal/broadcast"
	"github.com/foxseedlab/jimaku/internal/listener"
)

type ChunkSource interface {
	ReadChunk() (audio.Chunk, error)
}

type ListenerSource interface {
	Snapshot() []listener.Settings
}

// Stats counts what one pipeline run processed.
type Stats struct {
	ChunksRead   int64
	ChunksSilent int64
	Transcripts  int64
	Deliveries   int64
}

// TranscriptHook is called on the loop goroutine after a transcript has been routed, with the
// context window including that transcript. It must not block.
type TranscriptHook func(t Transcript, window []string)

// Pipeline runs chunk read, transcription, routing and delivery strictly in sequence, so every
// delivery for chunk k is issued before chunk k+1 is read.
type Pipeline struct {
	source    ChunkSource
	stage     *TranscriptionStage
	window    *ContextWindow
	router    *Router
	listeners ListenerSource
	out       broadcast.Broadcaster
	hook      TranscriptHook
}

func New(source ChunkSource, stage *TranscriptionStage, window *ContextWindow, router *Router, listeners ListenerSource, out broadcast.Broadcaster) *Pipeline {
	return &Pipeline{
		source:    source,
		stage:     stage,
		window:    window,
		router:    router,
		listeners: listeners,
		out:       out,
	}
}

func (p *Pipeline) OnTranscript(hook TranscriptHook) {
	p.hook = hook
}

// Run loops until running reports false between chunks or the source fails. It returns nil
// when stopped, audio.ErrEndOfStream when the stream ended and the read error otherwise.
func (p *Pipeline) Run(ctx context.Context, running func() bool) (Stats, error) {
	var stats Stats
	for running() {
		chunk, err := p.source.ReadChunk()
		if err != nil {
			if !running() {
				return stats, nil
			}
			return stats, err
		}
		stats.ChunksRead++
		if chunk.Silent {
			stats.ChunksSilent++
			continue
		}
		stats.Deliveries += int64(p.process(ctx, chunk, running, &stats))
	}
	return stats, nil
}

func (p *Pipeline) process(ctx context.Context, chunk audio.Chunk, running func() bool, stats *Stats) int {
	t, ok := p.stage.Transcribe(ctx, chunk)
	if !ok {
		return 0
	}
	stats.Transcripts++

	contextText := BuildContextText(p.window.Snapshot(), t.Text)
	deliveries := p.router.Route(ctx, t, contextText, p.listeners.Snapshot())
	p.window.Push(t.Text)

	if !running() {
		slog.Info("session stopped during routing; discarding results", "seq", t.Seq, "deliveries", len(deliveries))
		return 0
	}
	for _, d := range deliveries {
		p.out.Deliver(ctx, d.ConnectionID, broadcast.SubtitleEvent(d.Subtitle))
	}
	if p.hook != nil {
		p.hook(t, p.window.Snapshot())
	}
	return len(deliveries)
}

// IsEndOfStream reports whether err is the clean end of the decoded stream.
func IsEndOfStream(err error) bool {
	return errors.Is(err, audio.ErrEndOfStream)
}
