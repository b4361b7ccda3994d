package forecast

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/f1-winner/internal/features"
	"github.com/yourusername/f1-winner/internal/ml"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/repository"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fixture struct {
	service *Service
	repos   *repository.Repositories
	builder *features.Builder
	store   *ml.FileArtifactStore
	loader  *ml.Loader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore())
	store, err := ml.NewFileArtifactStore(t.TempDir())
	require.NoError(t, err)
	loader := ml.NewLoader(store, time.Minute, quietLogger())
	builder := features.NewBuilder(repos.SessionResult, repos.Feature, features.DefaultOptions(), quietLogger())
	svc := NewService(repos, builder, loader, Options{ModelName: "winner", Trials: 2000, Seed: 42}, quietLogger())
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }
	return &fixture{service: svc, repos: repos, builder: builder, store: store, loader: loader}
}

// publishModel trains on a past season where the best qualifier always wins
func (f *fixture) publishModel(t *testing.T) {
	t.Helper()
	var rows []*models.TrainingRow
	for round := 1; round <= 20; round++ {
		for d := 0; d < 3; d++ {
			pos := d + 1
			form := float64(d + 1)
			rows = append(rows, &models.TrainingRow{
				FeatureRow: models.FeatureRow{
					Season:          2024,
					Round:           round,
					DriverID:        fmt.Sprintf("d%02d", d),
					QualifyingScore: 1 - float64(d)/3,
					DriverForm:      &form,
					GridPosition:    &pos,
				},
				Position: pos,
				Won:      pos == 1,
			})
		}
	}
	trainer := ml.NewTrainer(f.repos, f.store, f.loader, ml.TrainOptions{
		ModelName:       "winner",
		MinRows:         10,
		HoldoutFraction: 0.2,
		Iterations:      300,
		LearningRate:    0.1,
		L2:              0.01,
		TrainRegressor:  true,
	}, quietLogger())
	_, err := trainer.Fit(context.Background(), rows)
	require.NoError(t, err)
}

// seedSeason stores four 2025 rounds with results for the first two
func (f *fixture) seedSeason(t *testing.T, racedRounds int) {
	t.Helper()
	ctx := context.Background()
	for round := 1; round <= 4; round++ {
		require.NoError(t, f.repos.Event.Upsert(ctx, &models.Event{
			Season:        2025,
			Round:         round,
			Name:          fmt.Sprintf("Round %d", round),
			ScheduledDate: time.Date(2025, 3, 7*round, 0, 0, 0, 0, time.UTC),
		}))
	}

	var results []*models.SessionResult
	for round := 1; round <= racedRounds; round++ {
		for d := 0; d < 3; d++ {
			pos := d + 1
			q := 90.0 + float64(d)
			results = append(results,
				&models.SessionResult{
					Season: 2025, Round: round, DriverID: fmt.Sprintf("d%02d", d), Kind: models.SessionQualifying,
					TeamID: "team", Position: &pos, Q1Seconds: &q, Status: models.StatusFinished,
				},
				&models.SessionResult{
					Season: 2025, Round: round, DriverID: fmt.Sprintf("d%02d", d), Kind: models.SessionRace,
					TeamID: "team", Position: &pos, GridPosition: &pos, Status: models.StatusFinished,
				},
			)
		}
	}
	_, err := f.repos.SessionResult.UpsertBatch(ctx, results)
	require.NoError(t, err)
	_, err = f.builder.Rebuild(ctx)
	require.NoError(t, err)
}

func TestServiceRunStoresForecastAndPredictions(t *testing.T) {
	f := newFixture(t)
	f.publishModel(t)
	f.seedSeason(t, 2)
	ctx := context.Background()
	runID := uuid.New()

	summary, err := f.service.Run(ctx, 2025, runID)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.CompletedRounds)
	assert.Equal(t, 2, summary.RemainingEvents)
	assert.Equal(t, 3, summary.Participants)
	assert.Equal(t, 6, summary.Predictions)
	assert.Len(t, summary.ModelDigest, 64)
	assert.True(t, summary.Result.Simulated)

	predictions, err := f.repos.Prediction.ListBySeason(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, predictions, 6)
	perRound := map[int]float64{}
	for _, p := range predictions {
		perRound[p.Round] += p.WinProbability
		assert.Equal(t, summary.ModelDigest, p.ModelDigest)
		assert.NotNil(t, p.PredictedPosition)
	}
	assert.InDelta(t, 1.0, perRound[3], 1e-9)
	assert.InDelta(t, 1.0, perRound[4], 1e-9)

	forecast, err := f.repos.Forecast.ListBySeason(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, forecast, 3)
	points := map[string]int{}
	total := 0.0
	best := forecast[0]
	for _, row := range forecast {
		points[row.DriverID] = row.CurrentPoints
		total += row.ChampionshipProbability
		assert.Equal(t, runID, row.RunID)
		assert.Equal(t, 2, row.Round)
		assert.Equal(t, 2, row.RemainingEvents)
		assert.Equal(t, 2000, row.Trials)
		assert.Equal(t, int64(42), row.Seed)
		if row.ChampionshipProbability > best.ChampionshipProbability {
			best = row
		}
	}
	assert.Equal(t, map[string]int{"d00": 50, "d01": 36, "d02": 30}, points)
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.Equal(t, "d00", best.DriverID)
}

func TestServiceRunWithoutModel(t *testing.T) {
	f := newFixture(t)
	f.seedSeason(t, 2)
	ctx := context.Background()

	_, err := f.service.Run(ctx, 2025, uuid.New())
	assert.ErrorIs(t, err, ErrNoModel)

	forecast, err := f.repos.Forecast.ListBySeason(ctx, 2025)
	require.NoError(t, err)
	assert.Empty(t, forecast)
}

func TestServiceRunFinishedSeasonNeedsNoModel(t *testing.T) {
	f := newFixture(t)
	f.seedSeason(t, 4)
	ctx := context.Background()

	summary, err := f.service.Run(ctx, 2025, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.RemainingEvents)
	assert.False(t, summary.Result.Simulated)
	assert.Empty(t, summary.ModelDigest)

	forecast, err := f.repos.Forecast.ListBySeason(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, forecast, 3)
	for _, row := range forecast {
		if row.DriverID == "d00" {
			assert.Equal(t, 100, row.CurrentPoints)
			assert.Equal(t, 1.0, row.ChampionshipProbability)
		} else {
			assert.Equal(t, 0.0, row.ChampionshipProbability)
		}
	}
}

func TestServiceRunUsesQualifyingOfUpcomingRound(t *testing.T) {
	f := newFixture(t)
	f.publishModel(t)
	f.seedSeason(t, 2)
	ctx := context.Background()

	// round 3 has qualified in reverse order but not raced
	var quali []*models.SessionResult
	for d := 0; d < 3; d++ {
		pos := 3 - d
		q := 89.0 + float64(pos)
		quali = append(quali, &models.SessionResult{
			Season: 2025, Round: 3, DriverID: fmt.Sprintf("d%02d", d), Kind: models.SessionQualifying,
			TeamID: "team", Position: &pos, Q1Seconds: &q, Status: models.StatusFinished,
		})
	}
	_, err := f.repos.SessionResult.UpsertBatch(ctx, quali)
	require.NoError(t, err)
	_, err = f.builder.Rebuild(ctx)
	require.NoError(t, err)

	summary, err := f.service.Run(ctx, 2025, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RemainingEvents)
	assert.Equal(t, 6, summary.Predictions)

	predictions, err := f.repos.Prediction.ListBySeason(ctx, 2025)
	require.NoError(t, err)
	byDriver := map[string]float64{}
	for _, p := range predictions {
		if p.Round == 3 {
			byDriver[p.DriverID] = p.WinProbability
		}
	}
	require.Len(t, byDriver, 3)
	assert.Greater(t, byDriver["d02"], byDriver["d01"])
	assert.Greater(t, byDriver["d01"], byDriver["d00"])
}
