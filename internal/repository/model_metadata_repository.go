package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/f1-winner/internal/database"
	"github.com/yourusername/f1-winner/internal/models"
)

// PostgresModelMetadataRepository implements ModelMetadataRepository for PostgreSQL
type PostgresModelMetadataRepository struct {
	db *database.DB
}

// NewPostgresModelMetadataRepository creates a new model metadata repository
func NewPostgresModelMetadataRepository(db *database.DB) ModelMetadataRepository {
	return &PostgresModelMetadataRepository{db: db}
}

// Upsert records the metadata of the model now current for its name
func (r *PostgresModelMetadataRepository) Upsert(ctx context.Context, m *models.ModelMetadata) error {
	missing := m.MissingMetrics
	if missing == nil {
		missing = []string{}
	}

	query := `
		INSERT INTO model_metadata (
			name, digest, algorithm, trained_at, training_rows, holdout_rows, held_out,
			accuracy, top_pick_accuracy, roc_auc, missing_metrics, has_regressor
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (name) DO UPDATE SET
			digest = EXCLUDED.digest,
			algorithm = EXCLUDED.algorithm,
			trained_at = EXCLUDED.trained_at,
			training_rows = EXCLUDED.training_rows,
			holdout_rows = EXCLUDED.holdout_rows,
			held_out = EXCLUDED.held_out,
			accuracy = EXCLUDED.accuracy,
			top_pick_accuracy = EXCLUDED.top_pick_accuracy,
			roc_auc = EXCLUDED.roc_auc,
			missing_metrics = EXCLUDED.missing_metrics,
			has_regressor = EXCLUDED.has_regressor,
			updated_at = now()
	`

	_, err := r.db.Conn(ctx).Exec(ctx, query,
		m.Name, m.Digest, m.Algorithm, m.TrainedAt, m.TrainingRows, m.HoldoutRows, m.HeldOut,
		m.Accuracy, m.TopPickAccuracy, m.ROCAUC, missing, m.HasRegressor,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert model metadata %s: %w", m.Name, err)
	}
	return nil
}

// Get retrieves the metadata for a model name
func (r *PostgresModelMetadataRepository) Get(ctx context.Context, name string) (*models.ModelMetadata, error) {
	query := `
		SELECT name, digest, algorithm, trained_at, training_rows, holdout_rows, held_out,
			accuracy, top_pick_accuracy, roc_auc, missing_metrics, has_regressor, updated_at
		FROM model_metadata
		WHERE name = $1
	`

	m := &models.ModelMetadata{}
	err := r.db.Conn(ctx).QueryRow(ctx, query, name).Scan(
		&m.Name, &m.Digest, &m.Algorithm, &m.TrainedAt, &m.TrainingRows, &m.HoldoutRows, &m.HeldOut,
		&m.Accuracy, &m.TopPickAccuracy, &m.ROCAUC, &m.MissingMetrics, &m.HasRegressor, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query model metadata %s: %w", name, err)
	}
	return m, nil
}
