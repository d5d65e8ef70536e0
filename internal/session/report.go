package session

import (
	"time"

	"github.com/foxseedlab/jimaku/internal/pipeline"
	"github.com/foxseedlab/jimaku/internal/repository"
	"github.com/foxseedlab/jimaku/internal/webhook"
)

type runSummary struct {
	runID      string
	streamURL  string
	startedAt  time.Time
	endedAt    time.Time
	reason     StopReason
	stats      pipeline.Stats
	stderrTail []string
}

func (s runSummary) completeRunInput() repository.CompleteRunInput {
	return repository.CompleteRunInput{
		RunID:        s.runID,
		EndedAt:      s.endedAt,
		StopReason:   string(s.reason),
		ChunksRead:   s.stats.ChunksRead,
		ChunksSilent: s.stats.ChunksSilent,
		Transcripts:  s.stats.Transcripts,
		Deliveries:   s.stats.Deliveries,
	}
}

func (s runSummary) report() webhook.SessionReport {
	durationSeconds := int64(s.endedAt.Sub(s.startedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return webhook.SessionReport{
		RunID:           s.runID,
		StreamURL:       s.streamURL,
		StartedAt:       s.startedAt.UTC(),
		EndedAt:         s.endedAt.UTC(),
		DurationSeconds: durationSeconds,
		StopReason:      string(s.reason),
		StopReasonText:  s.reason.Detail(),
		ChunksRead:      s.stats.ChunksRead,
		ChunksSilent:    s.stats.ChunksSilent,
		Transcripts:     s.stats.Transcripts,
		Deliveries:      s.stats.Deliveries,
		StderrTail:      s.stderrTail,
	}
}
