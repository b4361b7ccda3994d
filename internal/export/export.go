// Package export writes the training set and forecasts to Parquet files for
// offline analysis using github.com/parquet-go/parquet-go.
package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/repository"
)

// TrainingRecord is one labelled training row
type TrainingRecord struct {
	Season              int32     `parquet:"season,snappy"`
	Round               int32     `parquet:"round,snappy"`
	DriverID            string    `parquet:"driver_id,snappy"`
	TeamID              string    `parquet:"team_id,snappy"`
	GridPosition        *int32    `parquet:"grid_position,optional,snappy"`
	QualifyingScore     float64   `parquet:"qualifying_score,snappy"`
	DriverForm          *float64  `parquet:"driver_form,optional,snappy"`
	DriverFormSamples   int32     `parquet:"driver_form_samples,snappy"`
	TeamStrength        *float64  `parquet:"team_strength,optional,snappy"`
	TeamStrengthSamples int32     `parquet:"team_strength_samples,snappy"`
	PracticePace        *float64  `parquet:"practice_pace,optional,snappy"`
	SprintFinish        *int32    `parquet:"sprint_finish,optional,snappy"`
	BuiltAt             time.Time `parquet:"built_at,snappy"`
	Position            int32     `parquet:"position,snappy"`
	Won                 bool      `parquet:"won,snappy"`
}

// ForecastRecord is one participant's championship forecast
type ForecastRecord struct {
	RunID                   string    `parquet:"run_id,snappy"`
	Season                  int32     `parquet:"season,snappy"`
	Round                   int32     `parquet:"round,snappy"`
	DriverID                string    `parquet:"driver_id,snappy"`
	CurrentPoints           int32     `parquet:"current_points,snappy"`
	ExpectedPoints          float64   `parquet:"expected_points,snappy"`
	ProjectedTotal          float64   `parquet:"projected_total,snappy"`
	ChampionshipProbability float64   `parquet:"championship_probability,snappy"`
	RemainingEvents         int32     `parquet:"remaining_events,snappy"`
	Trials                  int32     `parquet:"trials,snappy"`
	Seed                    int64     `parquet:"seed,snappy"`
	CreatedAt               time.Time `parquet:"created_at,snappy"`
}

func int32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	out := int32(*v)
	return &out
}

// TrainingRecords flattens training rows into Parquet records
func TrainingRecords(rows []*models.TrainingRow) []TrainingRecord {
	out := make([]TrainingRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, TrainingRecord{
			Season:              int32(r.Season),
			Round:               int32(r.Round),
			DriverID:            r.DriverID,
			TeamID:              r.TeamID,
			GridPosition:        int32Ptr(r.GridPosition),
			QualifyingScore:     r.QualifyingScore,
			DriverForm:          r.DriverForm,
			DriverFormSamples:   int32(r.DriverFormSamples),
			TeamStrength:        r.TeamStrength,
			TeamStrengthSamples: int32(r.TeamStrengthSamples),
			PracticePace:        r.PracticePace,
			SprintFinish:        int32Ptr(r.SprintFinish),
			BuiltAt:             r.BuiltAt,
			Position:            int32(r.Position),
			Won:                 r.Won,
		})
	}
	return out
}

// ForecastRecords flattens forecast rows into Parquet records
func ForecastRecords(rows []*models.ChampionshipForecast) []ForecastRecord {
	out := make([]ForecastRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ForecastRecord{
			RunID:                   r.RunID.String(),
			Season:                  int32(r.Season),
			Round:                   int32(r.Round),
			DriverID:                r.DriverID,
			CurrentPoints:           int32(r.CurrentPoints),
			ExpectedPoints:          r.ExpectedPoints,
			ProjectedTotal:          r.ProjectedTotal,
			ChampionshipProbability: r.ChampionshipProbability,
			RemainingEvents:         int32(r.RemainingEvents),
			Trials:                  int32(r.Trials),
			Seed:                    r.Seed,
			CreatedAt:               r.CreatedAt,
		})
	}
	return out
}

// WriteParquet writes data to outputPath with the schema inferred from T
func WriteParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		_ = file.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return file.Close()
}

// Exporter reads tables from the store and writes them out
type Exporter struct {
	training  repository.TrainingRepository
	forecasts repository.ForecastRepository
	logger    *logrus.Logger
}

// NewExporter creates an exporter
func NewExporter(repos *repository.Repositories, logger *logrus.Logger) *Exporter {
	return &Exporter{training: repos.Training, forecasts: repos.Forecast, logger: logger}
}

// TrainingSet writes the current training table and returns the row count
func (e *Exporter) TrainingSet(ctx context.Context, outputPath string) (int, error) {
	rows, err := e.training.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("load training rows: %w", err)
	}
	if err := WriteParquet(TrainingRecords(rows), outputPath); err != nil {
		return 0, err
	}
	e.logger.WithFields(logrus.Fields{"rows": len(rows), "path": outputPath}).Info("Training set exported")
	return len(rows), nil
}

// Forecast writes the stored forecast of a season and returns the row count
func (e *Exporter) Forecast(ctx context.Context, season int, outputPath string) (int, error) {
	rows, err := e.forecasts.ListBySeason(ctx, season)
	if err != nil {
		return 0, fmt.Errorf("load forecast %d: %w", season, err)
	}
	if err := WriteParquet(ForecastRecords(rows), outputPath); err != nil {
		return 0, err
	}
	e.logger.WithFields(logrus.Fields{"rows": len(rows), "season": season, "path": outputPath}).Info("Forecast exported")
	return len(rows), nil
}
