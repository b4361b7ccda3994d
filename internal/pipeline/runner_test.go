package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/f1-winner/internal/features"
	"github.com/yourusername/f1-winner/internal/forecast"
	"github.com/yourusername/f1-winner/internal/logger"
	"github.com/yourusername/f1-winner/internal/ml"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/repository"
	"github.com/yourusername/f1-winner/internal/service"
	"github.com/yourusername/f1-winner/internal/training"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// storeIngester writes a fixed calendar and result set straight into the store
type storeIngester struct {
	repos   *repository.Repositories
	events  []*models.Event
	results []*models.SessionResult
}

func (s *storeIngester) IngestSeasons(ctx context.Context, _ *logger.PipelineLogger, seasons []int) (*service.IngestionMetrics, error) {
	m := service.NewIngestionMetrics()
	for range seasons {
		m.RecordSeason()
	}
	for _, e := range s.events {
		if err := s.repos.Event.Upsert(ctx, e); err != nil {
			return m, err
		}
		m.RecordEvent(false)
	}
	written, err := s.repos.SessionResult.UpsertBatch(ctx, s.results)
	if err != nil {
		return m, err
	}
	m.RecordSession(written, len(s.results)-written, 0)
	m.Finish()
	return m, nil
}

// seasonData builds events and qualifying plus race results where d00 always wins
func seasonData(season, rounds, racedRounds int) ([]*models.Event, []*models.SessionResult) {
	var events []*models.Event
	var results []*models.SessionResult
	for round := 1; round <= rounds; round++ {
		events = append(events, &models.Event{
			Season:        season,
			Round:         round,
			Name:          fmt.Sprintf("Round %d", round),
			ScheduledDate: time.Date(season, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*round),
		})
		if round > racedRounds {
			continue
		}
		for d := 0; d < 3; d++ {
			pos := d + 1
			q := 90.0 + float64(d)
			id := fmt.Sprintf("d%02d", d)
			results = append(results,
				&models.SessionResult{
					Season: season, Round: round, DriverID: id, Kind: models.SessionQualifying,
					TeamID: fmt.Sprintf("t%d", d), Position: &pos, Q1Seconds: &q, Status: models.StatusFinished,
				},
				&models.SessionResult{
					Season: season, Round: round, DriverID: id, Kind: models.SessionRace,
					TeamID: fmt.Sprintf("t%d", d), Position: &pos, GridPosition: &pos, Status: models.StatusFinished,
				},
			)
		}
	}
	return events, results
}

type stack struct {
	repos  *repository.Repositories
	runner *Runner
}

func newStack(t *testing.T, ingester *storeIngester) *stack {
	t.Helper()
	log := quietLogger()
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore())
	store, err := ml.NewFileArtifactStore(t.TempDir())
	require.NoError(t, err)
	loader := ml.NewLoader(store, time.Minute, log)
	builder := features.NewBuilder(repos.SessionResult, repos.Feature, features.DefaultOptions(), log)
	trainer := ml.NewTrainer(repos, store, loader, ml.TrainOptions{
		ModelName:       "winner",
		MinRows:         50,
		HoldoutFraction: 0.2,
		Iterations:      300,
		LearningRate:    0.1,
		L2:              0.01,
	}, log)
	forecaster := forecast.NewService(repos, builder, loader, forecast.Options{ModelName: "winner", Trials: 500, Seed: 3}, log)

	c := Components{
		Builder:    builder,
		Assembler:  training.NewAssembler(repos, log),
		Trainer:    trainer,
		Forecaster: forecaster,
	}
	if ingester != nil {
		ingester.repos = repos
		c.Ingester = ingester
	}
	return &stack{repos: repos, runner: NewRunner(repos, c, log)}
}

func states(report *RunReport) map[Stage]State {
	out := make(map[Stage]State)
	for _, s := range report.Stages {
		out[s.Stage] = s.State
	}
	return out
}

func TestRunCompletesEveryStage(t *testing.T) {
	history, historyResults := seasonData(2024, 20, 20)
	current, currentResults := seasonData(2025, 3, 1)
	ing := &storeIngester{
		events:  append(history, current...),
		results: append(historyResults, currentResults...),
	}
	s := newStack(t, ing)
	ctx := context.Background()

	report, err := s.runner.Run(ctx, Options{Seasons: []int{2024, 2025}, TargetSeason: 2025})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, report.Outcome)
	require.Len(t, report.Stages, 5)
	for i, stage := range Stages {
		assert.Equal(t, stage, report.Stages[i].Stage)
		assert.Equal(t, StateCompleted, report.Stages[i].State, stage)
	}
	assert.Equal(t, 126, report.Stage(StageIngest).Rows)
	assert.Equal(t, 63, report.Stage(StageFeatures).Rows)
	assert.Equal(t, 63, report.Stage(StageTrainingSet).Rows)
	require.NotNil(t, report.Model)
	assert.True(t, report.Model.HeldOut)
	require.NotNil(t, report.Forecast)
	assert.Equal(t, 2, report.Forecast.RemainingEvents)
	assert.Equal(t, 3, report.Forecast.Participants)
	assert.Equal(t, report.Model.Digest, report.Forecast.ModelDigest)

	runs, err := s.repos.Run.Latest(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	assert.Equal(t, OutcomeSucceeded, runs[0].Outcome)

	var stored RunReport
	require.NoError(t, json.Unmarshal(runs[0].Report, &stored))
	assert.Equal(t, report.States(), stored.States())

	forecastRows, err := s.repos.Forecast.ListBySeason(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, forecastRows, 3)
	assert.Equal(t, report.RunID, forecastRows[0].RunID)
}

func TestRunRefusedTrainingWithoutModelSkipsForecast(t *testing.T) {
	events, results := seasonData(2025, 4, 2)
	s := newStack(t, &storeIngester{events: events, results: results})

	report, err := s.runner.Run(context.Background(), Options{Seasons: []int{2025}, TargetSeason: 2025})
	require.NoError(t, err)

	assert.Equal(t, OutcomePartial, report.Outcome)
	assert.Equal(t, map[Stage]State{
		StageIngest:      StateCompleted,
		StageFeatures:    StateCompleted,
		StageTrainingSet: StateCompleted,
		StageTrain:       StateRefused,
		StageForecast:    StateSkipped,
	}, states(report))
	assert.Contains(t, report.Stage(StageTrain).Reason, "insufficient data")
	assert.Contains(t, report.Stage(StageForecast).Reason, forecast.ErrNoModel.Error())
	assert.Nil(t, report.Model)
}

func TestRunWithoutIngesterSkipsIngest(t *testing.T) {
	s := newStack(t, nil)

	report, err := s.runner.Run(context.Background(), Options{TargetSeason: 2025})
	require.NoError(t, err)

	ingest := report.Stage(StageIngest)
	require.NotNil(t, ingest)
	assert.Equal(t, StateSkipped, ingest.State)
	assert.Equal(t, "ingestion disabled", ingest.Reason)
	assert.Equal(t, StateRefused, report.Stage(StageTrain).State)
}

type fakeBuilder struct{ err error }

func (f fakeBuilder) Rebuild(context.Context) ([]*models.FeatureRow, error) { return nil, f.err }

type fakeAssembler struct{}

func (fakeAssembler) Rebuild(context.Context) ([]*models.TrainingRow, error) { return nil, nil }

type fakeTrainer struct{ err error }

func (f fakeTrainer) Train(context.Context) (*models.ModelMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ModelMetadata{Name: "winner", TrainingRows: 40, HoldoutRows: 10}, nil
}

type fakeForecaster struct{ calls int }

func (f *fakeForecaster) Run(_ context.Context, season int, _ uuid.UUID) (*forecast.Summary, error) {
	f.calls++
	return &forecast.Summary{Season: season, Participants: 2, Result: &forecast.Result{}}, nil
}

func fakeRunner(repos *repository.Repositories, c Components) *Runner {
	if c.Builder == nil {
		c.Builder = fakeBuilder{}
	}
	if c.Assembler == nil {
		c.Assembler = fakeAssembler{}
	}
	if c.Trainer == nil {
		c.Trainer = fakeTrainer{}
	}
	if c.Forecaster == nil {
		c.Forecaster = &fakeForecaster{}
	}
	return NewRunner(repos, c, quietLogger())
}

func TestRunForecastsFromPreviousModelAfterRefusal(t *testing.T) {
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore())
	fc := &fakeForecaster{}
	refusal := &ml.RefusalError{Reason: ml.ErrNoLabelVariance, Rows: 60}
	r := fakeRunner(repos, Components{Trainer: fakeTrainer{err: refusal}, Forecaster: fc})

	report, err := r.Run(context.Background(), Options{TargetSeason: 2025})
	require.NoError(t, err)

	assert.Equal(t, StateRefused, report.Stage(StageTrain).State)
	assert.Contains(t, report.Stage(StageTrain).Reason, "label has no variance")
	assert.Equal(t, StateCompleted, report.Stage(StageForecast).State)
	assert.Equal(t, 1, fc.calls)
	assert.Equal(t, OutcomePartial, report.Outcome)
}

func TestRunStopsOnStageFailure(t *testing.T) {
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore())
	storeErr := errors.New("connection reset")
	fc := &fakeForecaster{}
	r := fakeRunner(repos, Components{Builder: fakeBuilder{err: storeErr}, Forecaster: fc})

	report, err := r.Run(context.Background(), Options{TargetSeason: 2025})
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	require.NotNil(t, report)

	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, StateFailed, report.Stage(StageFeatures).State)
	for _, stage := range []Stage{StageTrainingSet, StageTrain, StageForecast} {
		sr := report.Stage(stage)
		require.NotNil(t, sr)
		assert.Equal(t, StateSkipped, sr.State)
		assert.Equal(t, "features failed", sr.Reason)
	}
	assert.Zero(t, fc.calls)

	runs, err := repos.Run.Latest(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, OutcomeFailed, runs[0].Outcome)
}

func TestRunRejectedWhileLockHeld(t *testing.T) {
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore())
	fc := &fakeForecaster{}
	r := fakeRunner(repos, Components{Forecaster: fc})

	var report *RunReport
	var runErr error
	err := repos.Locker.WithRunLock(context.Background(), func(ctx context.Context) error {
		report, runErr = r.Run(ctx, Options{TargetSeason: 2025})
		return nil
	})
	require.NoError(t, err)

	assert.ErrorIs(t, runErr, models.ErrRunInProgress)
	assert.Nil(t, report)
	assert.Zero(t, fc.calls)

	runs, err := repos.Run.Latest(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
