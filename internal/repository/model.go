package repository

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
)

// Run is the history row of one session. Transcripts themselves are never stored.
type Run struct {
	ID           string
	StreamURL    string
	StartedAt    time.Time
	EndedAt      *time.Time
	Status       RunStatus
	StopReason   string
	ChunksRead   int64
	ChunksSilent int64
	Transcripts  int64
	Deliveries   int64
}
