package models

import "time"

// FeatureRow holds point-in-time features for one participant at one event
type FeatureRow struct {
	Season              int       `db:"season" json:"season"`
	Round               int       `db:"round" json:"round"`
	DriverID            string    `db:"driver_id" json:"driver_id"`
	TeamID              string    `db:"team_id" json:"team_id"`
	GridPosition        *int      `db:"grid_position" json:"grid_position"`
	QualifyingScore     float64   `db:"qualifying_score" json:"qualifying_score"`
	DriverForm          *float64  `db:"driver_form" json:"driver_form"`
	DriverFormSamples   int       `db:"driver_form_samples" json:"driver_form_samples"`
	TeamStrength        *float64  `db:"team_strength" json:"team_strength"`
	TeamStrengthSamples int       `db:"team_strength_samples" json:"team_strength_samples"`
	PracticePace        *float64  `db:"practice_pace" json:"practice_pace"`
	SprintFinish        *int      `db:"sprint_finish" json:"sprint_finish"`
	BuiltAt             time.Time `db:"built_at" json:"built_at"`
}

// EventKey returns the event the row describes
func (f *FeatureRow) EventKey() EventKey {
	return EventKey{Season: f.Season, Round: f.Round}
}

// TrainingRow is a FeatureRow labelled with the race outcome
type TrainingRow struct {
	FeatureRow
	Position int  `db:"position" json:"position"`
	Won      bool `db:"won" json:"won"`
}
