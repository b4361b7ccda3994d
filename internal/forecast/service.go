package forecast

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/config"
	"github.com/yourusername/f1-winner/internal/features"
	"github.com/yourusername/f1-winner/internal/logger"
	"github.com/yourusername/f1-winner/internal/metrics"
	"github.com/yourusername/f1-winner/internal/ml"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/repository"
)

// ErrNoModel is returned when no model has been published yet
var ErrNoModel = errors.New("no trained model available")

// Options controls a forecast run
type Options struct {
	ModelName string
	Trials    int
	Seed      int64
}

// OptionsFromConfig builds forecast options from the forecast and training sections
func OptionsFromConfig(fc config.ForecastConfig, tc config.TrainingConfig) Options {
	return Options{ModelName: tc.ModelName, Trials: fc.Trials, Seed: fc.Seed}
}

// Summary describes one persisted forecast
type Summary struct {
	Season          int
	CompletedRounds int
	RemainingEvents int
	Participants    int
	Predictions     int
	ModelDigest     string
	Result          *Result
}

// Service turns the current model and the result store into a season forecast
type Service struct {
	events      repository.EventRepository
	results     repository.SessionResultRepository
	predictions repository.PredictionRepository
	forecasts   repository.ForecastRepository
	builder     *features.Builder
	loader      *ml.Loader
	opts        Options
	logger      *logrus.Logger
	mlLog       *logger.MLLogger
	now         func() time.Time
}

// NewService creates a forecast service
func NewService(repos *repository.Repositories, builder *features.Builder, loader *ml.Loader, opts Options, log *logrus.Logger) *Service {
	return &Service{
		events:      repos.Event,
		results:     repos.SessionResult,
		predictions: repos.Prediction,
		forecasts:   repos.Forecast,
		builder:     builder,
		loader:      loader,
		opts:        opts,
		logger:      log,
		mlLog:       logger.NewMLLogger(log),
		now:         time.Now,
	}
}

// Run forecasts the season and replaces its stored predictions and forecast.
// Events without recorded race results are treated as remaining.
func (s *Service) Run(ctx context.Context, season int, runID uuid.UUID) (*Summary, error) {
	start := time.Now()

	events, err := s.events.GetBySeason(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("load calendar %d: %w", season, err)
	}
	races, err := s.results.ListBySeason(ctx, season, models.SessionRace)
	if err != nil {
		return nil, fmt.Errorf("load race results %d: %w", season, err)
	}

	raced := make(map[int]bool)
	for _, r := range races {
		raced[r.Round] = true
	}
	lastRound := 0
	var remaining []int
	for _, e := range events {
		if raced[e.Round] {
			if e.Round > lastRound {
				lastRound = e.Round
			}
			continue
		}
		remaining = append(remaining, e.Round)
	}
	sort.Ints(remaining)

	var model *ml.Model
	var odds []EventOdds
	var predictions []*models.WinPrediction
	if len(remaining) > 0 {
		var cacheHit bool
		model, cacheHit, err = s.loadModel(ctx)
		if err != nil {
			return nil, err
		}
		odds, predictions, err = s.predict(ctx, model, cacheHit, season, remaining)
		if err != nil {
			return nil, err
		}
	}

	current := CurrentPoints(races, season)
	for _, o := range odds {
		for id := range o {
			if _, ok := current[id]; !ok {
				current[id] = 0
			}
		}
	}
	standings := make([]Standing, 0, len(current))
	for id, pts := range current {
		standings = append(standings, Standing{DriverID: id, CurrentPoints: pts})
	}

	result := Simulate(Request{
		Standings: standings,
		Remaining: odds,
		Trials:    s.opts.Trials,
		Seed:      s.opts.Seed,
	})

	createdAt := s.now().UTC()
	rows := make([]*models.ChampionshipForecast, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		rows = append(rows, &models.ChampionshipForecast{
			RunID:                   runID,
			Season:                  season,
			Round:                   lastRound,
			DriverID:                o.DriverID,
			CurrentPoints:           o.CurrentPoints,
			ExpectedPoints:          o.ExpectedPoints,
			ProjectedTotal:          o.ProjectedTotal,
			ChampionshipProbability: o.ChampionshipProbability,
			RemainingEvents:         len(remaining),
			Trials:                  result.Trials,
			Seed:                    result.Seed,
			CreatedAt:               createdAt,
		})
	}

	if err := s.predictions.ReplaceForSeason(ctx, season, predictions); err != nil {
		return nil, fmt.Errorf("store win predictions: %w", err)
	}
	if err := s.forecasts.ReplaceForSeason(ctx, season, rows); err != nil {
		return nil, fmt.Errorf("store championship forecast: %w", err)
	}

	seasonLabel := fmt.Sprintf("%d", season)
	for _, o := range result.Outcomes {
		metrics.UpdateChampionshipProbability(seasonLabel, o.DriverID, o.ChampionshipProbability)
	}
	metrics.RecordForecastDuration(time.Since(start).Seconds())

	summary := &Summary{
		Season:          season,
		CompletedRounds: len(raced),
		RemainingEvents: len(remaining),
		Participants:    len(result.Outcomes),
		Predictions:     len(predictions),
		Result:          result,
	}
	if model != nil {
		summary.ModelDigest = model.Digest()
	}
	s.logger.WithFields(logrus.Fields{
		"season":       season,
		"remaining":    len(remaining),
		"participants": len(result.Outcomes),
		"trials":       result.Trials,
		"seed":         result.Seed,
		"simulated":    result.Simulated,
	}).Info("Championship forecast stored")
	return summary, nil
}

func (s *Service) loadModel(ctx context.Context) (*ml.Model, bool, error) {
	hitsBefore, _, _ := s.loader.Stats()
	model, err := s.loader.Load(ctx, s.opts.ModelName)
	if errors.Is(err, ml.ErrArtifactNotFound) {
		return nil, false, fmt.Errorf("%w: %s", ErrNoModel, s.opts.ModelName)
	}
	if err != nil {
		return nil, false, err
	}
	hitsAfter, _, _ := s.loader.Stats()
	return model, hitsAfter > hitsBefore, nil
}

// predict scores every entrant at each remaining event. Probabilities are
// normalised per event to sum to 1; an all-zero event falls back to uniform.
func (s *Service) predict(ctx context.Context, model *ml.Model, cacheHit bool, season int, rounds []int) ([]EventOdds, []*models.WinPrediction, error) {
	prospective, err := s.builder.Prospective(ctx, season, rounds)
	if err != nil {
		return nil, nil, err
	}

	predictedAt := s.now().UTC()
	odds := make([]EventOdds, 0, len(rounds))
	var predictions []*models.WinPrediction
	for _, round := range rounds {
		rows := prospective[models.EventKey{Season: season, Round: round}]
		if len(rows) == 0 {
			continue
		}
		probs, err := model.PredictWin(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("predict round %d: %w", round, err)
		}
		positions, err := model.PredictPosition(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("predict positions round %d: %w", round, err)
		}

		normalised := Normalise(probs)
		event := make(EventOdds, len(rows))
		for i, row := range rows {
			event[row.DriverID] = normalised[i]
			p := &models.WinPrediction{
				Season:         season,
				Round:          round,
				DriverID:       row.DriverID,
				TeamID:         row.TeamID,
				WinProbability: normalised[i],
				ModelDigest:    model.Digest(),
				PredictedAt:    predictedAt,
			}
			if positions != nil {
				pos := positions[i]
				p.PredictedPosition = &pos
			}
			predictions = append(predictions, p)
		}
		odds = append(odds, event)
		s.mlLog.LogPrediction(model.Name(), model.Digest(), len(rows), cacheHit)
	}
	return odds, predictions, nil
}

// Normalise scales probs to sum to 1. A non-positive total yields a uniform split.
func Normalise(probs []float64) []float64 {
	out := make([]float64, len(probs))
	if len(probs) == 0 {
		return out
	}
	total := 0.0
	for _, p := range probs {
		if p > 0 {
			total += p
		}
	}
	for i, p := range probs {
		switch {
		case total <= 0:
			out[i] = 1 / float64(len(probs))
		case p > 0:
			out[i] = p / total
		}
	}
	return out
}
