package features

import (
	"sort"

	"github.com/yourusername/f1-winner/internal/models"
	"gonum.org/v1/gonum/stat"
)

type finish struct {
	key      models.EventKey
	position float64
}

type teamEvent struct {
	key       models.EventKey
	positions []float64
}

// history holds classified race finishes in event order, per driver and per team
type history struct {
	byDriver map[string][]finish
	byTeam   map[string][]teamEvent
}

func newHistory(results []*models.SessionResult) *history {
	var races []*models.SessionResult
	for _, r := range results {
		if r.Kind == models.SessionRace && r.IsClassified() {
			races = append(races, r)
		}
	}
	sort.SliceStable(races, func(i, j int) bool { return races[i].EventKey().Before(races[j].EventKey()) })

	h := &history{
		byDriver: make(map[string][]finish),
		byTeam:   make(map[string][]teamEvent),
	}
	for _, r := range races {
		pos := float64(*r.Position)
		h.byDriver[r.DriverID] = append(h.byDriver[r.DriverID], finish{key: r.EventKey(), position: pos})

		if r.TeamID == "" {
			continue
		}
		events := h.byTeam[r.TeamID]
		if n := len(events); n > 0 && events[n-1].key == r.EventKey() {
			events[n-1].positions = append(events[n-1].positions, pos)
		} else {
			events = append(events, teamEvent{key: r.EventKey(), positions: []float64{pos}})
		}
		h.byTeam[r.TeamID] = events
	}
	return h
}

// driverForm averages the driver's last FormWindow finishes before target.
// It returns nil below FormMinSamples together with the samples seen.
func (h *history) driverForm(driverID string, target models.EventKey, opts Options) (*float64, int) {
	finishes := h.byDriver[driverID]
	var picked []float64
	for i := len(finishes) - 1; i >= 0 && len(picked) < opts.FormWindow; i-- {
		if opts.inScope(finishes[i].key, target) {
			picked = append(picked, finishes[i].position)
		}
	}
	return meanIfEnough(picked, len(picked), opts.FormMinSamples)
}

// teamStrength averages every classified finish of the team over its last
// TeamWindow events before target. Samples count events, not finishes.
func (h *history) teamStrength(teamID string, target models.EventKey, opts Options) (*float64, int) {
	if teamID == "" {
		return nil, 0
	}
	events := h.byTeam[teamID]
	var picked []float64
	n := 0
	for i := len(events) - 1; i >= 0 && n < opts.TeamWindow; i-- {
		if opts.inScope(events[i].key, target) {
			picked = append(picked, events[i].positions...)
			n++
		}
	}
	return meanIfEnough(picked, n, opts.TeamMinSamples)
}

func meanIfEnough(values []float64, samples, minSamples int) (*float64, int) {
	if samples == 0 || samples < minSamples {
		return nil, samples
	}
	m := stat.Mean(values, nil)
	return &m, samples
}
