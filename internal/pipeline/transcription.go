package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/jimaku/internal/audio"
	"github.com/foxseedlab/jimaku/internal/transcriber"
)

type Transcript struct {
	Seq  int64
	Text string
}

// TranscriptionStage turns audio chunks into transcripts. It carries the previous transcript
// as a continuation hint and never lets a failed call escape.
type TranscriptionStage struct {
	service  transcriber.Service
	timeout  time.Duration
	previous string
}

func NewTranscriptionStage(service transcriber.Service, timeout time.Duration) *TranscriptionStage {
	return &TranscriptionStage{service: service, timeout: timeout}
}

// Transcribe returns false for silent chunks, failed calls and empty results.
func (s *TranscriptionStage) Transcribe(ctx context.Context, chunk audio.Chunk) (Transcript, bool) {
	if chunk.Silent {
		return Transcript{}, false
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	text, err := s.service.Transcribe(ctx, audio.EncodeWAV(chunk.PCM, chunk.Format), chunk.Format.SampleRate, s.previous)
	if err != nil {
		slog.Warn("transcription failed", "seq", chunk.Seq, "error", err, "elapsed", time.Since(started))
		return Transcript{}, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		slog.Debug("transcription returned no text", "seq", chunk.Seq, "peak", chunk.Peak)
		return Transcript{}, false
	}
	s.previous = text
	slog.Debug("chunk transcribed", "seq", chunk.Seq, "chars", len(text), "elapsed", time.Since(started))
	return Transcript{Seq: chunk.Seq, Text: text}, true
}

func (s *TranscriptionStage) Reset() {
	s.previous = ""
}
