package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/f1-winner/internal/database"
	"github.com/yourusername/f1-winner/internal/models"
)

// replaceSeason deletes a season's rows and copies the new ones in one transaction.
func replaceSeason(ctx context.Context, db *database.DB, table string, season int, columns []string, rows [][]any) error {
	return db.WithTransaction(ctx, func(txCtx context.Context) error {
		q := db.Conn(txCtx)
		del := fmt.Sprintf("DELETE FROM %s WHERE season = $1", pgx.Identifier{table}.Sanitize())
		if _, err := q.Exec(txCtx, del, season); err != nil {
			return fmt.Errorf("failed to clear %s for season %d: %w", table, season, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := q.CopyFrom(txCtx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy %s rows: %w", table, err)
		}
		return nil
	})
}

// PostgresForecastRepository implements ForecastRepository for PostgreSQL
type PostgresForecastRepository struct {
	db *database.DB
}

// NewPostgresForecastRepository creates a new forecast repository
func NewPostgresForecastRepository(db *database.DB) ForecastRepository {
	return &PostgresForecastRepository{db: db}
}

var forecastColumns = []string{
	"run_id", "season", "round", "driver_id", "current_points", "expected_points",
	"projected_total", "championship_probability", "remaining_events", "trials", "seed", "created_at",
}

// ReplaceForSeason replaces a season's forecast with a new run
func (r *PostgresForecastRepository) ReplaceForSeason(ctx context.Context, season int, rows []*models.ChampionshipForecast) error {
	values := make([][]any, len(rows))
	for i, f := range rows {
		values[i] = []any{
			f.RunID, f.Season, f.Round, f.DriverID, f.CurrentPoints, f.ExpectedPoints,
			f.ProjectedTotal, f.ChampionshipProbability, f.RemainingEvents, f.Trials, f.Seed, f.CreatedAt,
		}
	}
	return replaceSeason(ctx, r.db, "championship_forecasts", season, forecastColumns, values)
}

// ListBySeason retrieves a season's forecast, most likely champion first
func (r *PostgresForecastRepository) ListBySeason(ctx context.Context, season int) ([]*models.ChampionshipForecast, error) {
	query := `
		SELECT run_id, season, round, driver_id, current_points, expected_points,
			projected_total, championship_probability, remaining_events, trials, seed, created_at
		FROM championship_forecasts
		WHERE season = $1
		ORDER BY championship_probability DESC, projected_total DESC, driver_id
	`

	rows, err := r.db.Conn(ctx).Query(ctx, query, season)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecasts for season %d: %w", season, err)
	}
	defer rows.Close()

	var out []*models.ChampionshipForecast
	for rows.Next() {
		f := &models.ChampionshipForecast{}
		err := rows.Scan(
			&f.RunID, &f.Season, &f.Round, &f.DriverID, &f.CurrentPoints, &f.ExpectedPoints,
			&f.ProjectedTotal, &f.ChampionshipProbability, &f.RemainingEvents, &f.Trials, &f.Seed, &f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		out = append(out, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forecasts: %w", err)
	}
	return out, nil
}

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

var predictionColumns = []string{
	"season", "round", "driver_id", "team_id", "win_probability",
	"predicted_position", "model_digest", "predicted_at",
}

// ReplaceForSeason replaces a season's predictions
func (r *PostgresPredictionRepository) ReplaceForSeason(ctx context.Context, season int, predictions []*models.WinPrediction) error {
	values := make([][]any, len(predictions))
	for i, p := range predictions {
		values[i] = []any{
			p.Season, p.Round, p.DriverID, p.TeamID, p.WinProbability,
			p.PredictedPosition, p.ModelDigest, p.PredictedAt,
		}
	}
	return replaceSeason(ctx, r.db, "win_predictions", season, predictionColumns, values)
}

// ListBySeason retrieves a season's predictions in event order
func (r *PostgresPredictionRepository) ListBySeason(ctx context.Context, season int) ([]*models.WinPrediction, error) {
	query := `
		SELECT season, round, driver_id, team_id, win_probability,
			predicted_position, model_digest, predicted_at
		FROM win_predictions
		WHERE season = $1
		ORDER BY round, win_probability DESC, driver_id
	`

	rows, err := r.db.Conn(ctx).Query(ctx, query, season)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions for season %d: %w", season, err)
	}
	defer rows.Close()

	var out []*models.WinPrediction
	for rows.Next() {
		p := &models.WinPrediction{}
		err := rows.Scan(
			&p.Season, &p.Round, &p.DriverID, &p.TeamID, &p.WinProbability,
			&p.PredictedPosition, &p.ModelDigest, &p.PredictedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return out, nil
}
