// Package forecast projects the drivers' championship by Monte Carlo simulation.
package forecast

import "github.com/yourusername/f1-winner/internal/models"

// Points is the race points table; positions past its end score nothing
var Points = []int{25, 18, 15, 12, 10, 8, 6, 4, 2, 1}

// PointsFor returns the points awarded for a 1-based finishing position
func PointsFor(position int) int {
	if position < 1 || position > len(Points) {
		return 0
	}
	return Points[position-1]
}

// CurrentPoints sums the points table over the season's classified race results
func CurrentPoints(results []*models.SessionResult, season int) map[string]int {
	totals := make(map[string]int)
	for _, r := range results {
		if r.Season != season || r.Kind != models.SessionRace {
			continue
		}
		if _, ok := totals[r.DriverID]; !ok {
			totals[r.DriverID] = 0
		}
		if r.IsClassified() {
			totals[r.DriverID] += PointsFor(*r.Position)
		}
	}
	return totals
}
