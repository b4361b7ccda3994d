package features

import (
	"sort"
	"time"

	"github.com/yourusername/f1-winner/internal/models"
	"gonum.org/v1/gonum/stat"
)

// eventResults groups the session results of one event
type eventResults struct {
	qualifying []*models.SessionResult
	practice   map[models.SessionKind][]*models.SessionResult
	sprint     map[string]*models.SessionResult
}

func indexEvents(results []*models.SessionResult) (map[models.EventKey]*eventResults, []models.EventKey) {
	events := make(map[models.EventKey]*eventResults)
	var keys []models.EventKey
	for _, r := range results {
		ev, ok := events[r.EventKey()]
		if !ok {
			ev = &eventResults{
				practice: make(map[models.SessionKind][]*models.SessionResult),
				sprint:   make(map[string]*models.SessionResult),
			}
			events[r.EventKey()] = ev
			keys = append(keys, r.EventKey())
		}
		switch r.Kind {
		case models.SessionQualifying:
			ev.qualifying = append(ev.qualifying, r)
		case models.SessionPractice1, models.SessionPractice2, models.SessionPractice3:
			ev.practice[r.Kind] = append(ev.practice[r.Kind], r)
		case models.SessionSprintRace:
			ev.sprint[r.DriverID] = r
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return events, keys
}

// Compute derives one FeatureRow per (event, participant) with a qualifying
// result. Rolling windows only read race results of strictly earlier events.
func Compute(results []*models.SessionResult, opts Options, builtAt time.Time) []*models.FeatureRow {
	events, keys := indexEvents(results)
	hist := newHistory(results)

	var rows []*models.FeatureRow
	for _, key := range keys {
		ev := events[key]
		if len(ev.qualifying) == 0 {
			continue
		}
		field := len(ev.qualifying)
		bests := stageBests(ev.qualifying)

		quali := append([]*models.SessionResult(nil), ev.qualifying...)
		sort.Slice(quali, func(i, j int) bool { return quali[i].DriverID < quali[j].DriverID })

		for _, q := range quali {
			row := &models.FeatureRow{
				Season:          key.Season,
				Round:           key.Round,
				DriverID:        q.DriverID,
				TeamID:          q.TeamID,
				GridPosition:    gridOf(q),
				QualifyingScore: qualifyingScore(q, field, bests, opts.Weights),
				PracticePace:    ev.practicePace(q.DriverID),
				BuiltAt:         builtAt,
			}
			row.DriverForm, row.DriverFormSamples = hist.driverForm(q.DriverID, key, opts)
			row.TeamStrength, row.TeamStrengthSamples = hist.teamStrength(q.TeamID, key, opts)
			if s, ok := ev.sprint[q.DriverID]; ok && s.IsClassified() {
				pos := *s.Position
				row.SprintFinish = &pos
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func gridOf(q *models.SessionResult) *int {
	src := q.GridPosition
	if src == nil {
		src = q.Position
	}
	if src == nil {
		return nil
	}
	g := *src
	return &g
}

// stageBests returns the fastest Q1, Q2 and Q3 times of the session
func stageBests(quali []*models.SessionResult) [3]*float64 {
	var bests [3]*float64
	for _, q := range quali {
		for i, t := range stageTimes(q) {
			if t == nil || *t <= 0 {
				continue
			}
			if bests[i] == nil || *t < *bests[i] {
				v := *t
				bests[i] = &v
			}
		}
	}
	return bests
}

func stageTimes(q *models.SessionResult) [3]*float64 {
	return [3]*float64{q.Q1Seconds, q.Q2Seconds, q.Q3Seconds}
}

// qualifyingScore combines grid, stages reached and pace into [0,1]; higher is better.
// Missing stages lower the stage and pace components.
func qualifyingScore(q *models.SessionResult, field int, bests [3]*float64, w Weights) float64 {
	var grid float64
	if g := gridOf(q); g != nil && field > 0 {
		grid = clamp01(float64(field-*g+1) / float64(field))
	}

	var reached int
	var ratios []float64
	for i, t := range stageTimes(q) {
		if t == nil || *t <= 0 {
			continue
		}
		reached++
		if bests[i] != nil {
			ratios = append(ratios, *bests[i] / *t)
		}
	}
	stage := float64(reached) / 3
	var pace float64
	if len(ratios) > 0 {
		pace = clamp01(stat.Mean(ratios, nil))
	}

	total := w.Grid + w.Stage + w.Pace
	if total <= 0 {
		w = DefaultOptions().Weights
		total = w.Grid + w.Stage + w.Pace
	}
	return (w.Grid*grid + w.Stage*stage + w.Pace*pace) / total
}

// practicePace averages sessionBest/ownBest over the practice sessions the driver set a time in
func (ev *eventResults) practicePace(driverID string) *float64 {
	var ratios []float64
	for _, kind := range models.PracticeKinds() {
		session := ev.practice[kind]
		var best, own float64
		for _, r := range session {
			if r.TimeSeconds == nil || *r.TimeSeconds <= 0 {
				continue
			}
			if best == 0 || *r.TimeSeconds < best {
				best = *r.TimeSeconds
			}
			if r.DriverID == driverID {
				own = *r.TimeSeconds
			}
		}
		if own > 0 {
			ratios = append(ratios, best/own)
		}
	}
	if len(ratios) == 0 {
		return nil
	}
	m := stat.Mean(ratios, nil)
	return &m
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
