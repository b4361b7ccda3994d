package repository

import (
	"context"

	"github.com/yourusername/f1-winner/internal/models"
)

// EventRepository defines the interface for calendar data access
type EventRepository interface {
	Upsert(ctx context.Context, event *models.Event) error
	Get(ctx context.Context, key models.EventKey) (*models.Event, error)
	GetBySeason(ctx context.Context, season int) ([]*models.Event, error)
}

// ParticipantRepository defines the interface for participant data access
type ParticipantRepository interface {
	Upsert(ctx context.Context, participant *models.Participant) error
	List(ctx context.Context) ([]*models.Participant, error)
}

// SessionResultRepository defines the interface for session result data access.
// Upserts are keyed by (season, round, driver, session kind); an identical
// payload leaves the stored row untouched.
type SessionResultRepository interface {
	Upsert(ctx context.Context, result *models.SessionResult) (bool, error)
	UpsertBatch(ctx context.Context, results []*models.SessionResult) (int, error)
	ListByKinds(ctx context.Context, kinds ...models.SessionKind) ([]*models.SessionResult, error)
	ListBySeason(ctx context.Context, season int, kind models.SessionKind) ([]*models.SessionResult, error)
	Count(ctx context.Context) (int, error)
}

// FeatureRepository defines the interface for feature rows. ReplaceAll swaps the
// whole table atomically; readers see either the old or the new rows.
type FeatureRepository interface {
	ReplaceAll(ctx context.Context, rows []*models.FeatureRow) error
	List(ctx context.Context) ([]*models.FeatureRow, error)
	ListByEvent(ctx context.Context, key models.EventKey) ([]*models.FeatureRow, error)
}

// TrainingRepository defines the interface for labelled training rows
type TrainingRepository interface {
	ReplaceAll(ctx context.Context, rows []*models.TrainingRow) error
	List(ctx context.Context) ([]*models.TrainingRow, error)
	Count(ctx context.Context) (int, error)
}

// ModelMetadataRepository mirrors the current artifact metadata for readers
type ModelMetadataRepository interface {
	Upsert(ctx context.Context, meta *models.ModelMetadata) error
	Get(ctx context.Context, name string) (*models.ModelMetadata, error)
}

// PredictionRepository defines the interface for per-event win predictions
type PredictionRepository interface {
	ReplaceForSeason(ctx context.Context, season int, predictions []*models.WinPrediction) error
	ListBySeason(ctx context.Context, season int) ([]*models.WinPrediction, error)
}

// ForecastRepository defines the interface for championship forecasts
type ForecastRepository interface {
	ReplaceForSeason(ctx context.Context, season int, rows []*models.ChampionshipForecast) error
	ListBySeason(ctx context.Context, season int) ([]*models.ChampionshipForecast, error)
}

// RunRepository records pipeline run reports
type RunRepository interface {
	Record(ctx context.Context, run *models.PipelineRun) error
	Latest(ctx context.Context, limit int) ([]*models.PipelineRun, error)
}

// Locker serialises pipeline runs against the store. WithRunLock returns
// models.ErrRunInProgress without calling fn when another run holds the lock.
type Locker interface {
	WithRunLock(ctx context.Context, fn func(context.Context) error) error
}
