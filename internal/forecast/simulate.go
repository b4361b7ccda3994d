package forecast

import (
	"math/rand"
	"sort"
	"time"
)

// probabilityFloor keeps zero-probability participants in the draw so every finishing order stays defined
const probabilityFloor = 1e-6

// DefaultTrials is used when a request does not set Trials
const DefaultTrials = 10000

// Standing is a participant's points before the remaining events
type Standing struct {
	DriverID      string
	CurrentPoints int
}

// EventOdds maps driver id to win probability for one remaining event.
// Drivers missing from the map draw at the floor probability.
type EventOdds map[string]float64

// Request is the input of one simulation
type Request struct {
	Standings []Standing
	Remaining []EventOdds
	Trials    int
	// Seed 0 is reserved: it draws a seed from the clock, so zero itself is
	// never used as a seed. Replay a clock-seeded run with the Result's Seed.
	Seed      int64
}

// Outcome is one participant's simulated championship outcome
type Outcome struct {
	DriverID                string
	CurrentPoints           int
	ExpectedPoints          float64
	ProjectedTotal          float64
	ChampionshipProbability float64
}

// Result holds outcomes sorted by driver id
type Result struct {
	Outcomes  []Outcome
	Trials    int
	Seed      int64
	Simulated bool
}

// Simulate runs the championship forecast. With no remaining events the
// current leaders split probability 1 without any draws. Ties for the most
// points in a trial go to the lexicographically smallest driver id.
func Simulate(req Request) *Result {
	standings := append([]Standing(nil), req.Standings...)
	sort.Slice(standings, func(i, j int) bool { return standings[i].DriverID < standings[j].DriverID })

	n := len(standings)
	res := &Result{Outcomes: make([]Outcome, n), Seed: req.Seed}
	for i, s := range standings {
		res.Outcomes[i] = Outcome{
			DriverID:       s.DriverID,
			CurrentPoints:  s.CurrentPoints,
			ProjectedTotal: float64(s.CurrentPoints),
		}
	}
	if n == 0 {
		return res
	}
	if len(req.Remaining) == 0 {
		splitLeaders(res.Outcomes)
		return res
	}

	trials := req.Trials
	if trials <= 0 {
		trials = DefaultTrials
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	weights := make([][]float64, len(req.Remaining))
	for e, odds := range req.Remaining {
		weights[e] = make([]float64, n)
		for i, s := range standings {
			p := odds[s.DriverID]
			if p < probabilityFloor {
				p = probabilityFloor
			}
			weights[e][i] = p
		}
	}

	wins := make([]int, n)
	gained := make([]float64, n)
	totals := make([]int, n)
	pool := make([]int, n)
	poolWeights := make([]float64, n)

	for t := 0; t < trials; t++ {
		for i, s := range standings {
			totals[i] = s.CurrentPoints
		}
		for e := range weights {
			for i := range pool {
				pool[i] = i
				poolWeights[i] = weights[e][i]
			}
			drawOrder(rng, pool, poolWeights, func(place, idx int) {
				pts := PointsFor(place + 1)
				totals[idx] += pts
				gained[idx] += float64(pts)
			})
		}

		champion := 0
		for i := 1; i < n; i++ {
			if totals[i] > totals[champion] {
				champion = i
			}
		}
		wins[champion]++
	}

	for i := range res.Outcomes {
		o := &res.Outcomes[i]
		o.ChampionshipProbability = float64(wins[i]) / float64(trials)
		o.ExpectedPoints = gained[i] / float64(trials)
		o.ProjectedTotal = float64(o.CurrentPoints) + o.ExpectedPoints
	}
	res.Trials = trials
	res.Seed = seed
	res.Simulated = true
	return res
}

// drawOrder samples positions without replacement, weighted, until the points
// table is exhausted. award is called with the 0-based place and pool index.
func drawOrder(rng *rand.Rand, pool []int, weights []float64, award func(place, idx int)) {
	size := len(pool)
	places := len(Points)
	if places > size {
		places = size
	}
	for place := 0; place < places; place++ {
		total := 0.0
		for k := 0; k < size; k++ {
			total += weights[k]
		}
		r := rng.Float64() * total
		pick := size - 1
		for k := 0; k < size; k++ {
			r -= weights[k]
			if r < 0 {
				pick = k
				break
			}
		}
		award(place, pool[pick])

		size--
		pool[pick], pool[size] = pool[size], pool[pick]
		weights[pick], weights[size] = weights[size], weights[pick]
	}
}

// splitLeaders gives the current points leaders an equal share of probability 1
func splitLeaders(outcomes []Outcome) {
	best := outcomes[0].CurrentPoints
	for _, o := range outcomes[1:] {
		if o.CurrentPoints > best {
			best = o.CurrentPoints
		}
	}
	var leaders []int
	for i, o := range outcomes {
		if o.CurrentPoints == best {
			leaders = append(leaders, i)
		}
	}
	share := 1 / float64(len(leaders))
	for _, i := range leaders {
		outcomes[i].ChampionshipProbability = share
	}
}
