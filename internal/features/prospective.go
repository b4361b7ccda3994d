package features

import (
	"sort"
	"time"

	"github.com/yourusername/f1-winner/internal/models"
	"gonum.org/v1/gonum/stat"
)

// neutralQualifyingScore stands in for a participant with no qualifying history in scope
const neutralQualifyingScore = 0.5

// Entrant is a participant expected to start an upcoming event
type Entrant struct {
	DriverID string
	TeamID   string
}

// Entrants returns every participant with a race or qualifying result in the
// season, with the team of their latest such result, sorted by driver id.
func Entrants(results []*models.SessionResult, season int) []Entrant {
	type latest struct {
		key  models.EventKey
		team string
	}
	seen := make(map[string]latest)
	for _, r := range results {
		if r.Season != season || (r.Kind != models.SessionRace && r.Kind != models.SessionQualifying) {
			continue
		}
		prev, ok := seen[r.DriverID]
		if !ok || prev.key.Before(r.EventKey()) || (prev.key == r.EventKey() && prev.team == "") {
			seen[r.DriverID] = latest{key: r.EventKey(), team: r.TeamID}
		}
	}

	out := make([]Entrant, 0, len(seen))
	for id, l := range seen {
		out = append(out, Entrant{DriverID: id, TeamID: l.team})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out
}

// Prospective builds feature rows for an event that has not been run. Rolling
// windows see every race before target; the qualifying score is the driver's
// mean over their last FormWindow built rows in scope, and session-derived
// fields stay nil.
func Prospective(results []*models.SessionResult, built []*models.FeatureRow, target models.EventKey, entrants []Entrant, opts Options, builtAt time.Time) []*models.FeatureRow {
	hist := newHistory(results)

	scores := make(map[string][]*models.FeatureRow)
	for _, f := range built {
		if opts.inScope(f.EventKey(), target) {
			scores[f.DriverID] = append(scores[f.DriverID], f)
		}
	}

	rows := make([]*models.FeatureRow, 0, len(entrants))
	for _, e := range entrants {
		row := &models.FeatureRow{
			Season:          target.Season,
			Round:           target.Round,
			DriverID:        e.DriverID,
			TeamID:          e.TeamID,
			QualifyingScore: recentScore(scores[e.DriverID], opts.FormWindow),
			BuiltAt:         builtAt,
		}
		row.DriverForm, row.DriverFormSamples = hist.driverForm(e.DriverID, target, opts)
		row.TeamStrength, row.TeamStrengthSamples = hist.teamStrength(e.TeamID, target, opts)
		rows = append(rows, row)
	}
	return rows
}

func recentScore(rows []*models.FeatureRow, window int) float64 {
	if len(rows) == 0 {
		return neutralQualifyingScore
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EventKey().Before(rows[j].EventKey()) })
	if window > 0 && len(rows) > window {
		rows = rows[len(rows)-window:]
	}
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.QualifyingScore
	}
	return stat.Mean(values, nil)
}
