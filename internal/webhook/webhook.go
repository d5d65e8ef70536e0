package webhook

import (
	"context"
	"time"
)

// SessionReport is posted once per session after teardown.
type SessionReport struct {
	RunID           string    `json:"run_id"`
	StreamURL       string    `json:"stream_url"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int64     `json:"duration_seconds"`
	StopReason      string    `json:"stop_reason"`
	StopReasonText  string    `json:"stop_reason_text"`
	ChunksRead      int64     `json:"chunks_read"`
	ChunksSilent    int64     `json:"chunks_silent"`
	Transcripts     int64     `json:"transcripts"`
	Deliveries      int64     `json:"deliveries"`
	StderrTail      []string  `json:"stderr_tail,omitempty"`
}

type Sender interface {
	SendSessionReport(ctx context.Context, report SessionReport) error
}
