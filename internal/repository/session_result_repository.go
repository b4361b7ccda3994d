package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/f1-winner/internal/database"
	"github.com/yourusername/f1-winner/internal/models"
)

// PostgresSessionResultRepository implements SessionResultRepository for PostgreSQL
type PostgresSessionResultRepository struct {
	db *database.DB
}

// NewPostgresSessionResultRepository creates a new session result repository
func NewPostgresSessionResultRepository(db *database.DB) SessionResultRepository {
	return &PostgresSessionResultRepository{db: db}
}

// The WHERE clause makes a repeated identical payload a no-op, so ingested_at
// only moves when the content changes.
const upsertSessionResultQuery = `
	INSERT INTO session_results (
		season, round, driver_id, session_kind, team_id, position, grid_position,
		time_seconds, q1_seconds, q2_seconds, q3_seconds, status, retirement_reason,
		mechanical, ingested_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (season, round, driver_id, session_kind) DO UPDATE SET
		team_id = EXCLUDED.team_id,
		position = EXCLUDED.position,
		grid_position = EXCLUDED.grid_position,
		time_seconds = EXCLUDED.time_seconds,
		q1_seconds = EXCLUDED.q1_seconds,
		q2_seconds = EXCLUDED.q2_seconds,
		q3_seconds = EXCLUDED.q3_seconds,
		status = EXCLUDED.status,
		retirement_reason = EXCLUDED.retirement_reason,
		mechanical = EXCLUDED.mechanical,
		ingested_at = EXCLUDED.ingested_at
	WHERE (
		session_results.team_id, session_results.position, session_results.grid_position,
		session_results.time_seconds, session_results.q1_seconds, session_results.q2_seconds,
		session_results.q3_seconds, session_results.status, session_results.retirement_reason,
		session_results.mechanical
	) IS DISTINCT FROM (
		EXCLUDED.team_id, EXCLUDED.position, EXCLUDED.grid_position,
		EXCLUDED.time_seconds, EXCLUDED.q1_seconds, EXCLUDED.q2_seconds,
		EXCLUDED.q3_seconds, EXCLUDED.status, EXCLUDED.retirement_reason,
		EXCLUDED.mechanical
	)
`

func sessionResultArgs(res *models.SessionResult) []any {
	return []any{
		res.Season, res.Round, res.DriverID, res.Kind, res.TeamID, res.Position, res.GridPosition,
		res.TimeSeconds, res.Q1Seconds, res.Q2Seconds, res.Q3Seconds, res.Status, res.RetirementReason,
		res.Mechanical, res.IngestedAt,
	}
}

// Upsert writes one result and reports whether the stored row changed
func (r *PostgresSessionResultRepository) Upsert(ctx context.Context, res *models.SessionResult) (bool, error) {
	tag, err := r.db.Conn(ctx).Exec(ctx, upsertSessionResultQuery, sessionResultArgs(res)...)
	if err != nil {
		return false, fmt.Errorf("failed to upsert session result %v: %w", res.Key(), err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpsertBatch writes many results in one round trip and returns how many rows changed
func (r *PostgresSessionResultRepository) UpsertBatch(ctx context.Context, results []*models.SessionResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, res := range results {
		batch.Queue(upsertSessionResultQuery, sessionResultArgs(res)...)
	}

	changed := 0
	err := r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		tx, ok := r.db.Conn(txCtx).(pgx.Tx)
		if !ok {
			return fmt.Errorf("expected a transaction in context")
		}
		br := tx.SendBatch(txCtx, batch)
		for range results {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to upsert session result batch: %w", err)
			}
			changed += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

const sessionResultColumns = `season, round, driver_id, session_kind, team_id, position, grid_position,
	time_seconds, q1_seconds, q2_seconds, q3_seconds, status, retirement_reason, mechanical, ingested_at`

func scanSessionResults(rows pgx.Rows) ([]*models.SessionResult, error) {
	defer rows.Close()

	var results []*models.SessionResult
	for rows.Next() {
		res := &models.SessionResult{}
		err := rows.Scan(
			&res.Season, &res.Round, &res.DriverID, &res.Kind, &res.TeamID, &res.Position, &res.GridPosition,
			&res.TimeSeconds, &res.Q1Seconds, &res.Q2Seconds, &res.Q3Seconds, &res.Status,
			&res.RetirementReason, &res.Mechanical, &res.IngestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session result: %w", err)
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session results: %w", err)
	}
	return results, nil
}

// ListByKinds retrieves every result of the given kinds in event order
func (r *PostgresSessionResultRepository) ListByKinds(ctx context.Context, kinds ...models.SessionKind) ([]*models.SessionResult, error) {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}

	query := `SELECT ` + sessionResultColumns + `
		FROM session_results
		WHERE session_kind = ANY($1)
		ORDER BY season, round, session_kind, driver_id`

	rows, err := r.db.Conn(ctx).Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("failed to query session results: %w", err)
	}
	return scanSessionResults(rows)
}

// ListBySeason retrieves one season's results of a single kind
func (r *PostgresSessionResultRepository) ListBySeason(ctx context.Context, season int, kind models.SessionKind) ([]*models.SessionResult, error) {
	query := `SELECT ` + sessionResultColumns + `
		FROM session_results
		WHERE season = $1 AND session_kind = $2
		ORDER BY round, driver_id`

	rows, err := r.db.Conn(ctx).Query(ctx, query, season, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s results for season %d: %w", kind, season, err)
	}
	return scanSessionResults(rows)
}

// Count returns the number of stored session results
func (r *PostgresSessionResultRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM session_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count session results: %w", err)
	}
	return n, nil
}
