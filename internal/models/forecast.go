package models

import (
	"time"

	"github.com/google/uuid"
)

// ChampionshipForecast is one participant's projected championship outcome
type ChampionshipForecast struct {
	RunID                   uuid.UUID `db:"run_id" json:"run_id"`
	Season                  int       `db:"season" json:"season"`
	Round                   int       `db:"round" json:"round"`
	DriverID                string    `db:"driver_id" json:"driver_id"`
	CurrentPoints           int       `db:"current_points" json:"current_points"`
	ExpectedPoints          float64   `db:"expected_points" json:"expected_points"`
	ProjectedTotal          float64   `db:"projected_total" json:"projected_total"`
	ChampionshipProbability float64   `db:"championship_probability" json:"championship_probability"`
	RemainingEvents         int       `db:"remaining_events" json:"remaining_events"`
	Trials                  int       `db:"trials" json:"trials"`
	Seed                    int64     `db:"seed" json:"seed"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
}
