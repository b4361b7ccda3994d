package ml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/repository"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testOptions() TrainOptions {
	return TrainOptions{
		ModelName:       "winner",
		MinRows:         50,
		HoldoutFraction: 0.2,
		Iterations:      500,
		LearningRate:    0.1,
		L2:              0.01,
		TrainRegressor:  true,
	}
}

// syntheticRows builds events where driver d00 qualifies best and always wins
func syntheticRows(events, drivers int) []*models.TrainingRow {
	var rows []*models.TrainingRow
	for e := 1; e <= events; e++ {
		for d := 0; d < drivers; d++ {
			pos := d + 1
			form := float64(d + 1)
			rows = append(rows, &models.TrainingRow{
				FeatureRow: models.FeatureRow{
					Season:          2025,
					Round:           e,
					DriverID:        fmt.Sprintf("d%02d", d),
					QualifyingScore: 1 - float64(d)/float64(drivers),
					DriverForm:      &form,
					GridPosition:    &pos,
				},
				Position: pos,
				Won:      pos == 1,
			})
		}
	}
	return rows
}

type fixture struct {
	trainer *Trainer
	repos   *repository.Repositories
	store   *FileArtifactStore
	loader  *Loader
}

func newFixture(t *testing.T, opts TrainOptions) *fixture {
	t.Helper()
	store, err := NewFileArtifactStore(t.TempDir())
	require.NoError(t, err)
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore())
	loader := NewLoader(store, time.Minute, quietLogger())
	return &fixture{
		trainer: NewTrainer(repos, store, loader, opts, quietLogger()),
		repos:   repos,
		store:   store,
		loader:  loader,
	}
}

func TestFitPublishesHeldOutModel(t *testing.T) {
	f := newFixture(t, testOptions())
	ctx := context.Background()

	meta, err := f.trainer.Fit(ctx, syntheticRows(20, 5))
	require.NoError(t, err)

	assert.True(t, meta.HeldOut)
	assert.Equal(t, 80, meta.TrainingRows)
	assert.Equal(t, 20, meta.HoldoutRows)
	assert.GreaterOrEqual(t, meta.Accuracy, 0.8)
	require.NotNil(t, meta.ROCAUC)
	assert.InDelta(t, 1.0, *meta.ROCAUC, 1e-9)
	require.NotNil(t, meta.TopPickAccuracy)
	assert.Equal(t, 1.0, *meta.TopPickAccuracy)
	assert.Empty(t, meta.MissingMetrics)
	assert.True(t, meta.HasRegressor)
	assert.Len(t, meta.Digest, 64)

	stored, err := f.repos.ModelMetadata.Get(ctx, "winner")
	require.NoError(t, err)
	assert.Equal(t, meta.Digest, stored.Digest)

	model, err := f.loader.Load(ctx, "winner")
	require.NoError(t, err)
	assert.Equal(t, meta.Digest, model.Digest())

	rows := syntheticRows(1, 5)
	probs, err := model.PredictWin(featureRows(rows))
	require.NoError(t, err)
	for i := 1; i < len(probs); i++ {
		assert.Greater(t, probs[i-1], probs[i], "better qualifiers must rank higher")
	}
	positions, err := model.PredictPosition(featureRows(rows))
	require.NoError(t, err)
	assert.Less(t, positions[0], positions[4])
}

func TestFitWithoutHoldoutIsInSample(t *testing.T) {
	opts := testOptions()
	opts.HoldoutFraction = 0
	opts.TrainRegressor = false
	f := newFixture(t, opts)

	meta, err := f.trainer.Fit(context.Background(), syntheticRows(12, 5))
	require.NoError(t, err)

	assert.False(t, meta.HeldOut)
	assert.Equal(t, 0, meta.HoldoutRows)
	assert.Equal(t, 60, meta.TrainingRows)
	assert.False(t, meta.HasRegressor)
}

func TestFitSingleClassHoldoutMarksAUCMissing(t *testing.T) {
	var rows []*models.TrainingRow
	for _, r := range syntheticRows(20, 5) {
		if r.Round > 16 && r.Won {
			continue
		}
		rows = append(rows, r)
	}
	f := newFixture(t, testOptions())

	meta, err := f.trainer.Fit(context.Background(), rows)
	require.NoError(t, err)

	assert.True(t, meta.HeldOut)
	assert.Nil(t, meta.ROCAUC)
	assert.Nil(t, meta.TopPickAccuracy)
	assert.Equal(t, []string{MetricROCAUC}, meta.MissingMetrics)
}

func TestFitRefusesInsufficientData(t *testing.T) {
	f := newFixture(t, testOptions())
	ctx := context.Background()

	_, err := f.trainer.Fit(ctx, syntheticRows(9, 5))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.True(t, IsRefusal(err))
	assert.Contains(t, err.Error(), "insufficient data")

	_, err = f.store.Current(ctx, "winner")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, err = f.repos.ModelMetadata.Get(ctx, "winner")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRefusalLeavesCurrentArtifactUnchanged(t *testing.T) {
	f := newFixture(t, testOptions())
	ctx := context.Background()

	first, err := f.trainer.Fit(ctx, syntheticRows(20, 5))
	require.NoError(t, err)

	losers := syntheticRows(20, 5)
	for _, r := range losers {
		r.Won = false
	}
	_, err = f.trainer.Fit(ctx, losers)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoLabelVariance)
	assert.Contains(t, err.Error(), "label has no variance")

	digest, err := f.store.CurrentDigest(ctx, "winner")
	require.NoError(t, err)
	assert.Equal(t, first.Digest, digest)
	stored, err := f.repos.ModelMetadata.Get(ctx, "winner")
	require.NoError(t, err)
	assert.Equal(t, first.Digest, stored.Digest)
}

func TestTrainReadsTrainingTable(t *testing.T) {
	f := newFixture(t, testOptions())
	ctx := context.Background()
	require.NoError(t, f.repos.Training.ReplaceAll(ctx, syntheticRows(20, 5)))

	meta, err := f.trainer.Train(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, meta.TrainingRows+meta.HoldoutRows)
}

func TestMedianImputer(t *testing.T) {
	nan := math.NaN()
	X := [][]float64{
		{1, nan, 5},
		{3, nan, nan},
		{2, nan, 7},
	}
	var im MedianImputer
	require.NoError(t, im.Fit(X))

	assert.Equal(t, []float64{2, 0, 5}, im.Medians)
	assert.Equal(t, []int{3, 0, 2}, im.Observed)

	out, err := im.Transform([][]float64{{nan, nan, nan}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 5}, out[0])

	_, err = im.Transform([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestStandardizerConstantColumn(t *testing.T) {
	var s Standardizer
	require.NoError(t, s.Fit([][]float64{{1, 4}, {3, 4}, {5, 4}}))

	assert.Equal(t, 1.0, s.Stds[1])
	out, err := s.Transform([][]float64{{3, 4}})
	require.NoError(t, err)
	assert.InDelta(t, 0, out[0][0], 1e-12)
	assert.InDelta(t, 0, out[0][1], 1e-12)
}

func TestEvaluateROCAUC(t *testing.T) {
	keys := []models.EventKey{{Season: 2025, Round: 1}, {Season: 2025, Round: 1}, {Season: 2025, Round: 2}, {Season: 2025, Round: 2}}

	ev := Evaluate([]float64{0.1, 0.4, 0.35, 0.8}, []float64{0, 0, 1, 1}, keys)
	require.NotNil(t, ev.ROCAUC)
	assert.InDelta(t, 0.75, *ev.ROCAUC, 1e-9)
	assert.Equal(t, 0.75, ev.Accuracy)
	require.NotNil(t, ev.TopPickAccuracy)
	assert.Equal(t, 1.0, *ev.TopPickAccuracy)

	single := Evaluate([]float64{0.1, 0.2}, []float64{0, 0}, keys[:2])
	assert.Nil(t, single.ROCAUC)
	assert.Equal(t, []string{MetricROCAUC}, single.Missing)
	assert.NotContains(t, single.AsMap(), MetricROCAUC)
}

func TestLinearRegressorRecoversLine(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		x := float64(i)
		X = append(X, []float64{x})
		y = append(y, 2+3*x)
	}
	var r LinearRegressor
	require.NoError(t, r.Fit(X, y))

	assert.InDelta(t, 2, r.Coefficients[0], 1e-3)
	assert.InDelta(t, 3, r.Coefficients[1], 1e-3)
	pred, err := r.Predict([][]float64{{10}})
	require.NoError(t, err)
	assert.InDelta(t, 32, pred[0], 1e-2)
}

func TestSplitByEvent(t *testing.T) {
	train, holdout := splitByEvent(syntheticRows(4, 3), 0.25)
	assert.Len(t, train, 9)
	assert.Len(t, holdout, 3)
	for _, r := range holdout {
		assert.Equal(t, 4, r.Round)
	}

	train, holdout = splitByEvent(syntheticRows(3, 3), 0.2)
	assert.Len(t, train, 9)
	assert.Empty(t, holdout)
}

func TestFileArtifactStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileArtifactStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	a := &Artifact{
		Name:         "winner",
		Algorithm:    AlgorithmLogistic,
		FeatureNames: FeatureNames,
		Classifier:   &LogisticRegression{Weights: []float64{0.1, 0.2, 0, 0, 0, 0, 0}},
		Imputer:      MedianImputer{Medians: make([]float64, 6), Observed: make([]int, 6)},
		Scaler:       Standardizer{Means: make([]float64, 6), Stds: []float64{1, 1, 1, 1, 1, 1}},
	}
	digest, err := store.Put(ctx, a)
	require.NoError(t, err)
	again, err := store.Put(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, digest, again, "identical content shares a blob")

	loaded, err := store.Current(ctx, "winner")
	require.NoError(t, err)
	assert.Equal(t, digest, loaded.Metadata.Digest)
	assert.Equal(t, a.Classifier.Weights, loaded.Classifier.Weights)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "blobs", digest+".json"), []byte(`{"name":"winner"}`), 0o644))
	_, err = store.Current(ctx, "winner")
	assert.Error(t, err)

	_, err = store.Put(ctx, &Artifact{Name: "../escape"})
	assert.Error(t, err)
}

func TestLoaderCachesByDigest(t *testing.T) {
	f := newFixture(t, testOptions())
	ctx := context.Background()

	_, err := f.trainer.Fit(ctx, syntheticRows(20, 5))
	require.NoError(t, err)

	m1, err := f.loader.Load(ctx, "winner")
	require.NoError(t, err)
	m2, err := f.loader.Load(ctx, "winner")
	require.NoError(t, err)
	assert.Same(t, m1, m2)
	hits, misses, _ := f.loader.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)

	_, err = f.trainer.Fit(ctx, syntheticRows(21, 5))
	require.NoError(t, err)
	m3, err := f.loader.Load(ctx, "winner")
	require.NoError(t, err)
	assert.NotEqual(t, m1.Digest(), m3.Digest())
}

func TestFitArtifactScoresWithoutPublishing(t *testing.T) {
	rows := syntheticRows(10, 4)
	art, err := FitArtifact(rows, testOptions())
	require.NoError(t, err)
	assert.Empty(t, art.Metadata.Digest)
	assert.NotNil(t, art.Regressor)

	model, err := NewModel(art)
	require.NoError(t, err)
	ev, err := EvaluateRows(model, rows)
	require.NoError(t, err)
	require.NotNil(t, ev.TopPickAccuracy)
	assert.InDelta(t, 1.0, *ev.TopPickAccuracy, 1e-9)
	assert.True(t, HasBothClasses(rows))
	assert.False(t, HasBothClasses(rows[1:2]))
}

type failingMetadata struct {
	repository.ModelMetadataRepository
	err error
}

func (f *failingMetadata) Upsert(context.Context, *models.ModelMetadata) error {
	return f.err
}

func TestPublishReportsStaleMetadataMirror(t *testing.T) {
	store, err := NewFileArtifactStore(t.TempDir())
	require.NoError(t, err)
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore())
	storeErr := errors.New("connection reset")
	repos.ModelMetadata = &failingMetadata{ModelMetadataRepository: repos.ModelMetadata, err: storeErr}
	log, hook := logtest.NewNullLogger()
	trainer := NewTrainer(repos, store, nil, testOptions(), log)
	ctx := context.Background()

	_, fitErr := trainer.Fit(ctx, syntheticRows(20, 5))
	require.Error(t, fitErr)
	assert.ErrorIs(t, fitErr, storeErr)

	digest, err := store.CurrentDigest(ctx, "winner")
	require.NoError(t, err)
	assert.Contains(t, fitErr.Error(), digest)

	var stale *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "Artifact published but model metadata mirror is stale" {
			stale = e
		}
	}
	require.NotNil(t, stale)
	assert.Equal(t, logrus.ErrorLevel, stale.Level)
	assert.Equal(t, digest, stale.Data["digest"])
}
