package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type syncRunRepo struct {
	db DBTX
}

const insertSyncRun = `
INSERT INTO sync_runs (
    id, started_at, finished_at, window_start, window_end,
    measure_groups, weights, blood_pressures, delivered, outcome, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (r *syncRunRepo) Insert(ctx context.Context, run *SyncRun) error {
	_, err := r.db.ExecContext(ctx, insertSyncRun,
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

const listRecentSyncRuns = `
SELECT id, started_at, finished_at, window_start, window_end,
       measure_groups, weights, blood_pressures, delivered, outcome, error
FROM sync_runs
ORDER BY started_at DESC
LIMIT ?
`

func (r *syncRunRepo) ListRecent(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, listRecentSyncRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []SyncRun
	for rows.Next() {
		var (
			run       SyncRun
			delivered string
			outcome   string
			runErr    sql.NullString
		)
		if err := rows.Scan(
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
			&runErr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		run.Delivered = splitDelivered(delivered)
		run.Outcome = Outcome(outcome)
		if runErr.Valid {
			run.Error = &runErr.String
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync runs: %w", err)
	}
	return runs, nil
}

func joinDelivered(platforms []string) string {
	return strings.Join(platforms, ",")
}

func splitDelivered(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// NewRun starts a run record; callers fill in counts and call Finish.
func NewRun(id string, startedAt time.Time) *SyncRun {
	return &SyncRun{
		ID:        id,
		StartedAt: startedAt,
	}
}

func (r *SyncRun) Finish(at time.Time, outcome Outcome, err error) {
	r.FinishedAt = at
	r.Outcome = outcome
	if err != nil {
		msg := err.Error()
		r.Error = &msg
	}
}
