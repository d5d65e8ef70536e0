package repository

import (
	"context"
	"time"
)

type CreateRunInput struct {
	RunID     string
	StreamURL string
	StartedAt time.Time
}

type CompleteRunInput struct {
	RunID        string
	EndedAt      time.Time
	StopReason   string
	ChunksRead   int64
	ChunksSilent int64
	Transcripts  int64
	Deliveries   int64
}

type Repository interface {
	CreateRun(ctx context.Context, input CreateRunInput) (*Run, error)
	CompleteRun(ctx context.Context, input CompleteRunInput) error
	// CloseOrphanedRuns completes runs left in the running state by a previous process.
	CloseOrphanedRuns(ctx context.Context, endedAt time.Time, reason string) (int64, error)
	ListRecentRuns(ctx context.Context, limit int) ([]Run, error)
}
