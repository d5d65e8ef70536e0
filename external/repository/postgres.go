package repository

import (
	"context"
	"time"

	"github.com/foxseedlab/jimaku/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const runColumns = `id, stream_url, started_at, ended_at, status, stop_reason, chunks_read, chunks_silent, transcripts, deliveries`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

// Shutdown closes the pool; the injector calls it on shutdown.
func (r *PostgresRepository) Shutdown() {
	r.pool.Close()
}

func (r *PostgresRepository) CreateRun(ctx context.Context, input repository.CreateRunInput) (*repository.Run, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO session_runs (id, stream_url, started_at, status)
		 VALUES ($1, $2, $3, 'running')
		 RETURNING `+runColumns,
		input.RunID, input.StreamURL, input.StartedAt)
	return scanRun(row)
}

func (r *PostgresRepository) CompleteRun(ctx context.Context, input repository.CompleteRunInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE session_runs
		 SET status = 'completed', ended_at = $2, stop_reason = $3,
		     chunks_read = $4, chunks_silent = $5, transcripts = $6, deliveries = $7
		 WHERE id = $1`,
		input.RunID, input.EndedAt, input.StopReason,
		input.ChunksRead, input.ChunksSilent, input.Transcripts, input.Deliveries)
	return err
}

func (r *PostgresRepository) CloseOrphanedRuns(ctx context.Context, endedAt time.Time, reason string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE session_runs SET status = 'completed', ended_at = $1, stop_reason = $2 WHERE status = 'running'`,
		endedAt, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) ListRecentRuns(ctx context.Context, limit int) ([]repository.Run, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+runColumns+` FROM session_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []repository.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*repository.Run, error) {
	var run repository.Run
	var endedAt *time.Time
	err := row.Scan(&run.ID, &run.StreamURL, &run.StartedAt, &endedAt, &run.Status, &run.StopReason,
		&run.ChunksRead, &run.ChunksSilent, &run.Transcripts, &run.Deliveries)
	if err != nil {
		return nil, err
	}
	run.EndedAt = endedAt
	return &run, nil
}
