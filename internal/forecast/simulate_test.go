package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/f1-winner/internal/models"
)

func probabilitySum(res *Result) float64 {
	total := 0.0
	for _, o := range res.Outcomes {
		total += o.ChampionshipProbability
	}
	return total
}

func outcome(t *testing.T, res *Result, id string) Outcome {
	t.Helper()
	for _, o := range res.Outcomes {
		if o.DriverID == id {
			return o
		}
	}
	t.Fatalf("no outcome for %s", id)
	return Outcome{}
}

func TestSimulateProbabilitiesSumToOne(t *testing.T) {
	odds := EventOdds{"a": 0.5, "b": 0.3, "c": 0.2}
	res := Simulate(Request{
		Standings: []Standing{{"c", 10}, {"a", 0}, {"b", 5}},
		Remaining: []EventOdds{odds, odds, odds},
		Trials:    10000,
		Seed:      42,
	})

	require.True(t, res.Simulated)
	assert.Equal(t, 10000, res.Trials)
	assert.Equal(t, int64(42), res.Seed)
	assert.InDelta(t, 1.0, probabilitySum(res), 1e-9)
	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, "a", res.Outcomes[0].DriverID)
	assert.Equal(t, "c", res.Outcomes[2].DriverID)
	for _, o := range res.Outcomes {
		assert.GreaterOrEqual(t, o.ProjectedTotal, float64(o.CurrentPoints))
	}
}

func TestSimulateIsDeterministicForSeed(t *testing.T) {
	req := Request{
		Standings: []Standing{{"a", 12}, {"b", 8}, {"c", 30}},
		Remaining: []EventOdds{
			{"a": 0.6, "b": 0.3, "c": 0.1},
			{"a": 0.2, "b": 0.2, "c": 0.6},
		},
		Trials: 2000,
		Seed:   7,
	}
	assert.Equal(t, Simulate(req), Simulate(req))
}

func TestSimulateClockSeedCanBeReplayed(t *testing.T) {
	req := Request{
		Standings: []Standing{{"a", 12}, {"b", 8}},
		Remaining: []EventOdds{{"a": 0.5, "b": 0.5}, {"a": 0.4, "b": 0.6}},
		Trials:    500,
	}
	first := Simulate(req)
	require.NotZero(t, first.Seed)

	req.Seed = first.Seed
	assert.Equal(t, first.Outcomes, Simulate(req).Outcomes)
}

func TestSimulateZeroRemainingEvents(t *testing.T) {
	res := Simulate(Request{
		Standings: []Standing{{"B", 90}, {"A", 100}},
		Trials:    1000,
		Seed:      1,
	})

	assert.False(t, res.Simulated)
	assert.Equal(t, 1.0, outcome(t, res, "A").ChampionshipProbability)
	assert.Equal(t, 0.0, outcome(t, res, "B").ChampionshipProbability)
	assert.Equal(t, 100.0, outcome(t, res, "A").ProjectedTotal)
}

func TestSimulateZeroRemainingSplitsTiedLeaders(t *testing.T) {
	res := Simulate(Request{Standings: []Standing{{"x", 50}, {"y", 50}, {"z", 10}}})

	assert.Equal(t, 0.5, outcome(t, res, "x").ChampionshipProbability)
	assert.Equal(t, 0.5, outcome(t, res, "y").ChampionshipProbability)
	assert.Equal(t, 0.0, outcome(t, res, "z").ChampionshipProbability)
}

func TestSimulateZeroParticipants(t *testing.T) {
	res := Simulate(Request{Remaining: []EventOdds{{"a": 1}}, Seed: 3})
	assert.Empty(t, res.Outcomes)
	assert.False(t, res.Simulated)
}

func TestSimulateTieGoesToSmallestID(t *testing.T) {
	// b can at best draw level with a, so a takes every trial
	res := Simulate(Request{
		Standings: []Standing{{"b", 0}, {"a", 7}},
		Remaining: []EventOdds{{"a": 0.01, "b": 0.99}},
		Trials:    500,
		Seed:      11,
	})

	assert.Equal(t, 1.0, outcome(t, res, "a").ChampionshipProbability)
	assert.Equal(t, 0.0, outcome(t, res, "b").ChampionshipProbability)
}

func TestSimulateFloorKeepsZeroProbabilityParticipantsOrdered(t *testing.T) {
	res := Simulate(Request{
		Standings: []Standing{{"fav", 0}, {"long", 0}},
		Remaining: []EventOdds{{"fav": 1}},
		Trials:    1000,
		Seed:      5,
	})

	assert.InDelta(t, 25.0, outcome(t, res, "fav").ExpectedPoints, 0.01)
	assert.InDelta(t, 18.0, outcome(t, res, "long").ExpectedPoints, 0.01)
	assert.InDelta(t, 1.0, outcome(t, res, "fav").ChampionshipProbability, 0.01)
}

func TestSimulateOnlyPointsPositionsAreDrawn(t *testing.T) {
	var standings []Standing
	odds := EventOdds{}
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		standings = append(standings, Standing{DriverID: id})
		odds[id] = 0.05
	}
	res := Simulate(Request{Standings: standings, Remaining: []EventOdds{odds}, Trials: 200, Seed: 9})

	total := 0.0
	for _, o := range res.Outcomes {
		total += o.ExpectedPoints
	}
	assert.InDelta(t, 101.0, total, 1e-9)
}

func TestPointsFor(t *testing.T) {
	assert.Equal(t, 25, PointsFor(1))
	assert.Equal(t, 1, PointsFor(10))
	assert.Equal(t, 0, PointsFor(11))
	assert.Equal(t, 0, PointsFor(0))
}

func TestCurrentPoints(t *testing.T) {
	pos := func(p int) *int { return &p }
	results := []*models.SessionResult{
		{Season: 2025, Round: 1, DriverID: "a", Kind: models.SessionRace, Position: pos(1)},
		{Season: 2025, Round: 1, DriverID: "b", Kind: models.SessionRace, Position: pos(2)},
		{Season: 2025, Round: 1, DriverID: "c", Kind: models.SessionRace, Status: models.StatusRetired},
		{Season: 2025, Round: 2, DriverID: "a", Kind: models.SessionRace, Position: pos(3)},
		{Season: 2025, Round: 2, DriverID: "b", Kind: models.SessionQualifying, Position: pos(1)},
		{Season: 2024, Round: 9, DriverID: "b", Kind: models.SessionRace, Position: pos(1)},
	}

	assert.Equal(t, map[string]int{"a": 40, "b": 18, "c": 0}, CurrentPoints(results, 2025))
}

func TestNormalise(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0.5, 0.25, 0.25}, Normalise([]float64{0.4, 0.2, 0.2}), 1e-12)
	assert.Equal(t, []float64{0.5, 0.5}, Normalise([]float64{0, 0}))
	assert.Equal(t, []float64{0, 1}, Normalise([]float64{-1, 3}))
	assert.Empty(t, Normalise(nil))
}
