package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/f1-winner/internal/database"
	"github.com/yourusername/f1-winner/internal/models"
)

// PostgresRunRepository implements RunRepository for PostgreSQL
type PostgresRunRepository struct {
	db *database.DB
}

// NewPostgresRunRepository creates a new run repository
func NewPostgresRunRepository(db *database.DB) RunRepository {
	return &PostgresRunRepository{db: db}
}

// Record stores or updates a run report
func (r *PostgresRunRepository) Record(ctx context.Context, run *models.PipelineRun) error {
	report := run.Report
	if len(report) == 0 {
		report = []byte("{}")
	}

	query := `
		INSERT INTO pipeline_runs (run_id, started_at, finished_at, outcome, report)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			outcome = EXCLUDED.outcome,
			report = EXCLUDED.report
	`

	if _, err := r.db.Conn(ctx).Exec(ctx, query, run.RunID, run.StartedAt, run.FinishedAt, run.Outcome, report); err != nil {
		return fmt.Errorf("failed to record pipeline run %s: %w", run.RunID, err)
	}
	return nil
}

// Latest retrieves the most recent runs, newest first
func (r *PostgresRunRepository) Latest(ctx context.Context, limit int) ([]*models.PipelineRun, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT run_id, started_at, finished_at, outcome, report
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.PipelineRun
	for rows.Next() {
		run := &models.PipelineRun{}
		if err := rows.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &run.Outcome, &run.Report); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pipeline runs: %w", err)
	}
	return runs, nil
}
