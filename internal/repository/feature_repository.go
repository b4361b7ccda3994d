package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/f1-winner/internal/database"
	"github.com/yourusername/f1-winner/internal/models"
)

var featureColumns = []string{
	"season", "round", "driver_id", "team_id", "grid_position", "qualifying_score",
	"driver_form", "driver_form_samples", "team_strength", "team_strength_samples",
	"practice_pace", "sprint_finish", "built_at",
}

func featureValues(f *models.FeatureRow) []any {
	return []any{
		f.Season, f.Round, f.DriverID, f.TeamID, f.GridPosition, f.QualifyingScore,
		f.DriverForm, f.DriverFormSamples, f.TeamStrength, f.TeamStrengthSamples,
		f.PracticePace, f.SprintFinish, f.BuiltAt,
	}
}

func featureTargets(f *models.FeatureRow) []any {
	return []any{
		&f.Season, &f.Round, &f.DriverID, &f.TeamID, &f.GridPosition, &f.QualifyingScore,
		&f.DriverForm, &f.DriverFormSamples, &f.TeamStrength, &f.TeamStrengthSamples,
		&f.PracticePace, &f.SprintFinish, &f.BuiltAt,
	}
}

// PostgresFeatureRepository implements FeatureRepository for PostgreSQL
type PostgresFeatureRepository struct {
	db *database.DB
}

// NewPostgresFeatureRepository creates a new feature repository
func NewPostgresFeatureRepository(db *database.DB) FeatureRepository {
	return &PostgresFeatureRepository{db: db}
}

// ReplaceAll swaps in a freshly built feature table
func (r *PostgresFeatureRepository) ReplaceAll(ctx context.Context, rows []*models.FeatureRow) error {
	values := make([][]any, len(rows))
	for i, f := range rows {
		values[i] = featureValues(f)
	}
	return swapTable(ctx, r.db, "feature_rows", featureColumns, values)
}

func (r *PostgresFeatureRepository) query(ctx context.Context, where string, args ...any) ([]*models.FeatureRow, error) {
	query := `SELECT ` + strings.Join(featureColumns, ", ") + ` FROM feature_rows ` + where + ` ORDER BY season, round, driver_id`

	rows, err := r.db.Conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature rows: %w", err)
	}
	defer rows.Close()

	var out []*models.FeatureRow
	for rows.Next() {
		f := &models.FeatureRow{}
		if err := rows.Scan(featureTargets(f)...); err != nil {
			return nil, fmt.Errorf("failed to scan feature row: %w", err)
		}
		out = append(out, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feature rows: %w", err)
	}
	return out, nil
}

// List retrieves every feature row in event order
func (r *PostgresFeatureRepository) List(ctx context.Context) ([]*models.FeatureRow, error) {
	return r.query(ctx, "")
}

// ListByEvent retrieves the feature rows of one event
func (r *PostgresFeatureRepository) ListByEvent(ctx context.Context, key models.EventKey) ([]*models.FeatureRow, error) {
	return r.query(ctx, "WHERE season = $1 AND round = $2", key.Season, key.Round)
}

// PostgresTrainingRepository implements TrainingRepository for PostgreSQL
type PostgresTrainingRepository struct {
	db *database.DB
}

// NewPostgresTrainingRepository creates a new training row repository
func NewPostgresTrainingRepository(db *database.DB) TrainingRepository {
	return &PostgresTrainingRepository{db: db}
}

var trainingColumns = append(append([]string{}, featureColumns...), "position", "won")

// ReplaceAll swaps in a freshly assembled training table
func (r *PostgresTrainingRepository) ReplaceAll(ctx context.Context, rows []*models.TrainingRow) error {
	values := make([][]any, len(rows))
	for i, t := range rows {
		values[i] = append(featureValues(&t.FeatureRow), t.Position, t.Won)
	}
	return swapTable(ctx, r.db, "training_rows", trainingColumns, values)
}

// List retrieves every training row in event order
func (r *PostgresTrainingRepository) List(ctx context.Context) ([]*models.TrainingRow, error) {
	query := `SELECT ` + strings.Join(trainingColumns, ", ") + ` FROM training_rows ORDER BY season, round, driver_id`

	rows, err := r.db.Conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query training rows: %w", err)
	}
	return collectTrainingRows(rows)
}

func collectTrainingRows(rows pgx.Rows) ([]*models.TrainingRow, error) {
	defer rows.Close()

	var out []*models.TrainingRow
	for rows.Next() {
		t := &models.TrainingRow{}
		targets := append(featureTargets(&t.FeatureRow), &t.Position, &t.Won)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan training row: %w", err)
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training rows: %w", err)
	}
	return out, nil
}

// Count returns the number of labelled rows
func (r *PostgresTrainingRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM training_rows`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count training rows: %w", err)
	}
	return n, nil
}
