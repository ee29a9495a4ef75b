package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxDBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type PgxDBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresRunRepo struct {
	db PgxDBTX
}

// NewPostgresRuns stores run history in Postgres; pass it to New via WithRuns.
func NewPostgresRuns(db PgxDBTX) SyncRunRepository {
	return &postgresRunRepo{db: db}
}

const insertSyncRunPostgres = `
INSERT INTO sync_runs (
    id, started_at, finished_at, window_start, window_end,
    measure_groups, weights, blood_pressures, delivered, outcome, error
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

func (r *postgresRunRepo) Insert(ctx context.Context, run *SyncRun) error {
	_, err := r.db.Exec(ctx, insertSyncRunPostgres,
		run.ID,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.WindowStart,
		run.WindowEnd,
		run.Groups,
		run.Weights,
		run.BloodPressures,
		joinDelivered(run.Delivered),
		string(run.Outcome),
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

const listRecentSyncRunsPostgres = `
SELECT id::text, started_at, finished_at, window_start, window_end,
       measure_groups, weights, blood_pressures, delivered, outcome, error
FROM sync_runs
ORDER BY started_at DESC
LIMIT $1
`

func (r *postgresRunRepo) ListRecent(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.Query(ctx, listRecentSyncRunsPostgres, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SyncRun, error) {
		var (
			run       SyncRun
			delivered string
			outcome   string
		)
		err := row.Scan(
			&run.ID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.WindowStart,
			&run.WindowEnd,
			&run.Groups,
			&run.Weights,
			&run.BloodPressures,
			&delivered,
			&outcome,
			&run.Error,
		)
		run.Delivered = splitDelivered(delivered)
		run.Outcome = Outcome(outcome)
		return run, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync runs: %w", err)
	}
	return runs, nil
}
