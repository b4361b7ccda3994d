package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/f1-winner/internal/database"
	"github.com/yourusername/f1-winner/internal/models"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func raceResult(season, round int, driver, team string, pos int, at time.Time) *models.SessionResult {
	return &models.SessionResult{
		Season:     season,
		Round:      round,
		DriverID:   driver,
		Kind:       models.SessionRace,
		TeamID:     team,
		Position:   intPtr(pos),
		Status:     models.StatusFinished,
		IngestedAt: at,
	}
}

func TestMemorySessionResultUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories(NewMemoryStore())

	first := time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC)
	changed, err := repos.SessionResult.Upsert(ctx, raceResult(2024, 1, "max_verstappen", "red_bull", 1, first))
	require.NoError(t, err)
	assert.True(t, changed)

	// same payload, later ingestion time: no change, original timestamp kept
	changed, err = repos.SessionResult.Upsert(ctx, raceResult(2024, 1, "max_verstappen", "red_bull", 1, first.Add(time.Hour)))
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := repos.SessionResult.ListBySeason(ctx, 2024, models.SessionRace)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, first, stored[0].IngestedAt)

	// corrected payload overwrites
	changed, err = repos.SessionResult.Upsert(ctx, raceResult(2024, 1, "max_verstappen", "red_bull", 2, first.Add(2*time.Hour)))
	require.NoError(t, err)
	assert.True(t, changed)

	count, err := repos.SessionResult.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryUpsertBatchCountsChanges(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories(NewMemoryStore())
	at := time.Now()

	batch := []*models.SessionResult{
		raceResult(2024, 1, "a", "t1", 1, at),
		raceResult(2024, 1, "b", "t2", 2, at),
	}
	n, err := repos.SessionResult.UpsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repos.SessionResult.UpsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryFeatureSwapKeepsOldRowsOnFailure(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories(NewMemoryStore())

	old := []*models.FeatureRow{{Season: 2024, Round: 1, DriverID: "a", QualifyingScore: 0.9}}
	require.NoError(t, repos.Feature.ReplaceAll(ctx, old))

	dup := []*models.FeatureRow{
		{Season: 2024, Round: 2, DriverID: "a"},
		{Season: 2024, Round: 2, DriverID: "a"},
	}
	err := repos.Feature.ReplaceAll(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDuplicateKey))

	rows, err := repos.Feature.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Round)
}

func TestMemoryLockerRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories(NewMemoryStore())

	err := repos.Locker.WithRunLock(ctx, func(ctx context.Context) error {
		inner := repos.Locker.WithRunLock(ctx, func(context.Context) error {
			t.Fatal("nested run must not start")
			return nil
		})
		assert.ErrorIs(t, inner, models.ErrRunInProgress)
		return nil
	})
	require.NoError(t, err)

	// released after the first run
	called := false
	require.NoError(t, repos.Locker.WithRunLock(ctx, func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestMemoryEventsOrderedByRound(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories(NewMemoryStore())

	for _, round := range []int{3, 1, 2} {
		require.NoError(t, repos.Event.Upsert(ctx, &models.Event{
			Season:        2024,
			Round:         round,
			ScheduledDate: time.Date(2024, 3, round, 0, 0, 0, 0, time.UTC),
		}))
	}

	events, err := repos.Event.GetBySeason(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{events[0].Round, events[1].Round, events[2].Round})

	_, err = repos.Event.Get(ctx, models.EventKey{Season: 2023, Round: 1})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryRunsLatestFirst(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories(NewMemoryStore())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		run := &models.PipelineRun{StartedAt: base.Add(time.Duration(i) * time.Hour), Outcome: "completed"}
		run.RunID[0] = byte(i + 1)
		require.NoError(t, repos.Run.Record(ctx, run))
	}

	runs, err := repos.Run.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, byte(3), runs[0].RunID[0])
}

func TestPostgresSessionResultUpsert(t *testing.T) {
	db := database.SetupTestDB(t)
	repos, err := NewRepositories(db)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	at := time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC)
	res := raceResult(1999, 1, "test_driver", "test_team", 3, at)
	res.TimeSeconds = floatPtr(5400.25)

	_, err = repos.SessionResult.Upsert(ctx, res)
	require.NoError(t, err)

	again := *res
	again.IngestedAt = at.Add(time.Hour)
	changed, err := repos.SessionResult.Upsert(ctx, &again)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := repos.SessionResult.ListBySeason(ctx, 1999, models.SessionRace)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, at.Equal(stored[0].IngestedAt))
}

func TestPostgresFeatureSwap(t *testing.T) {
	db := database.SetupTestDB(t)
	repos, err := NewRepositories(db)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	built := time.Now().UTC()
	require.NoError(t, repos.Feature.ReplaceAll(ctx, []*models.FeatureRow{
		{Season: 1999, Round: 1, DriverID: "a", QualifyingScore: 0.5, BuiltAt: built},
	}))

	err = repos.Feature.ReplaceAll(ctx, []*models.FeatureRow{
		{Season: 1999, Round: 2, DriverID: "a", BuiltAt: built},
		{Season: 1999, Round: 2, DriverID: "a", BuiltAt: built},
	})
	require.Error(t, err)

	rows, err := repos.Feature.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Round)
}
