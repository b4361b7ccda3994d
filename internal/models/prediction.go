package models

import "time"

// WinPrediction is the model's view of one participant at an upcoming event
type WinPrediction struct {
	Season            int       `db:"season" json:"season"`
	Round             int       `db:"round" json:"round"`
	DriverID          string    `db:"driver_id" json:"driver_id" validate:"required"`
	TeamID            string    `db:"team_id" json:"team_id"`
	WinProbability    float64   `db:"win_probability" json:"win_probability" validate:"gte=0,lte=1"`
	PredictedPosition *float64  `db:"predicted_position" json:"predicted_position,omitempty"`
	ModelDigest       string    `db:"model_digest" json:"model_digest"`
	PredictedAt       time.Time `db:"predicted_at" json:"predicted_at"`
}
