// Package training joins feature rows with race outcomes into labelled rows.
package training

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/repository"
)

type rowKey struct {
	event    models.EventKey
	driverID string
}

// Summary counts what an assembly kept and dropped
type Summary struct {
	Rows         int
	Winners      int
	NoRaceResult int
	Unclassified int
}

// Assemble labels every feature row that has a classified race result.
// Duplicate race rows for one (event, participant) resolve to the latest IngestedAt.
func Assemble(features []*models.FeatureRow, races []*models.SessionResult) ([]*models.TrainingRow, Summary) {
	latest := make(map[rowKey]*models.SessionResult, len(races))
	for _, r := range races {
		if r.Kind != models.SessionRace {
			continue
		}
		k := rowKey{event: r.EventKey(), driverID: r.DriverID}
		if prev, ok := latest[k]; ok && prev.IngestedAt.After(r.IngestedAt) {
			continue
		}
		latest[k] = r
	}

	var sum Summary
	rows := make([]*models.TrainingRow, 0, len(features))
	for _, f := range features {
		race, ok := latest[rowKey{event: f.EventKey(), driverID: f.DriverID}]
		if !ok {
			sum.NoRaceResult++
			continue
		}
		if !race.IsClassified() {
			sum.Unclassified++
			continue
		}
		row := &models.TrainingRow{
			FeatureRow: *f,
			Position:   *race.Position,
			Won:        *race.Position == 1,
		}
		if row.Won {
			sum.Winners++
		}
		rows = append(rows, row)
	}
	sum.Rows = len(rows)
	return rows, sum
}

// Assembler rebuilds the training table from stored features and race results
type Assembler struct {
	features repository.FeatureRepository
	results  repository.SessionResultRepository
	training repository.TrainingRepository
	logger   *logrus.Logger
}

// NewAssembler creates a training set assembler
func NewAssembler(repos *repository.Repositories, logger *logrus.Logger) *Assembler {
	return &Assembler{
		features: repos.Feature,
		results:  repos.SessionResult,
		training: repos.Training,
		logger:   logger,
	}
}

// Rebuild assembles the labelled rows and swaps the training table
func (a *Assembler) Rebuild(ctx context.Context) ([]*models.TrainingRow, error) {
	features, err := a.features.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load feature rows: %w", err)
	}
	races, err := a.results.ListByKinds(ctx, models.SessionRace)
	if err != nil {
		return nil, fmt.Errorf("load race results: %w", err)
	}

	rows, sum := Assemble(features, races)
	if err := a.training.ReplaceAll(ctx, rows); err != nil {
		return nil, fmt.Errorf("replace training rows: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"rows":           sum.Rows,
		"winners":        sum.Winners,
		"no_race_result": sum.NoRaceResult,
		"unclassified":   sum.Unclassified,
	}).Info("Training set rebuilt")
	return rows, nil
}
