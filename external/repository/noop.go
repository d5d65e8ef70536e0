package repository

import (
	"context"
	"time"

	"github.com/foxseedlab/jimaku/internal/repository"
	"github.com/google/uuid"
)

// NoopRepository is used when DATABASE_URL is empty. Nothing is kept.
type NoopRepository struct{}

func NewNoopRepository() repository.Repository {
	return NoopRepository{}
}

func (NoopRepository) CreateRun(_ context.Context, input repository.CreateRunInput) (*repository.Run, error) {
	return &repository.Run{
		ID:        runID(input.RunID),
		StreamURL: input.StreamURL,
		StartedAt: input.StartedAt,
		Status:    repository.RunStatusRunning,
	}, nil
}

func (NoopRepository) CompleteRun(context.Context, repository.CompleteRunInput) error {
	return nil
}

func (NoopRepository) CloseOrphanedRuns(context.Context, time.Time, string) (int64, error) {
	return 0, nil
}

func (NoopRepository) ListRecentRuns(context.Context, int) ([]repository.Run, error) {
	return nil, nil
}

func runID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
