package features

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/repository"
)

// inputKinds are the sessions features are derived from
var inputKinds = []models.SessionKind{
	models.SessionPractice1,
	models.SessionPractice2,
	models.SessionPractice3,
	models.SessionQualifying,
	models.SessionSprintRace,
	models.SessionRace,
}

// Builder rebuilds the feature table from the result store
type Builder struct {
	results  repository.SessionResultRepository
	features repository.FeatureRepository
	opts     Options
	logger   *logrus.Logger
	now      func() time.Time
}

// NewBuilder creates a feature builder
func NewBuilder(results repository.SessionResultRepository, features repository.FeatureRepository, opts Options, logger *logrus.Logger) *Builder {
	return &Builder{
		results:  results,
		features: features,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Options returns the windows the builder was configured with
func (b *Builder) Options() Options {
	return b.opts
}

// Rebuild recomputes every feature row and swaps the table in one step
func (b *Builder) Rebuild(ctx context.Context) ([]*models.FeatureRow, error) {
	results, err := b.results.ListByKinds(ctx, inputKinds...)
	if err != nil {
		return nil, fmt.Errorf("load session results: %w", err)
	}

	rows := Compute(results, b.opts, b.now().UTC())
	if err := b.features.ReplaceAll(ctx, rows); err != nil {
		return nil, fmt.Errorf("replace feature rows: %w", err)
	}

	withForm := 0
	for _, r := range rows {
		if r.DriverForm != nil {
			withForm++
		}
	}
	b.logger.WithFields(logrus.Fields{
		"results":   len(results),
		"rows":      len(rows),
		"with_form": withForm,
		"scope":     b.opts.Scope,
	}).Info("Feature rows rebuilt")
	return rows, nil
}

// Prospective builds rows for the given upcoming events of one season. A round
// that already has built rows, because qualifying has run, keeps those rows;
// the rest are synthesised from earlier events.
func (b *Builder) Prospective(ctx context.Context, season int, rounds []int) (map[models.EventKey][]*models.FeatureRow, error) {
	results, err := b.results.ListByKinds(ctx, inputKinds...)
	if err != nil {
		return nil, fmt.Errorf("load session results: %w", err)
	}
	built, err := b.features.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load feature rows: %w", err)
	}

	entrants := Entrants(results, season)
	if len(entrants) == 0 {
		// before the season opener the previous grid is the best guess
		entrants = Entrants(results, season-1)
	}
	qualified := make(map[models.EventKey][]*models.FeatureRow)
	for _, f := range built {
		if f.Season == season {
			qualified[f.EventKey()] = append(qualified[f.EventKey()], f)
		}
	}

	now := b.now().UTC()
	out := make(map[models.EventKey][]*models.FeatureRow, len(rounds))
	for _, round := range rounds {
		key := models.EventKey{Season: season, Round: round}
		if rows, ok := qualified[key]; ok {
			sort.Slice(rows, func(i, j int) bool { return rows[i].DriverID < rows[j].DriverID })
			out[key] = rows
			continue
		}
		out[key] = Prospective(results, built, key, entrants, b.opts, now)
	}
	return out, nil
}
