package models

import "time"

// ModelMetadata describes the current trained model for a logical model name
type ModelMetadata struct {
	Name            string    `db:"name" json:"name" validate:"required"`
	Digest          string    `db:"digest" json:"digest" validate:"required"`
	Algorithm       string    `db:"algorithm" json:"algorithm"`
	TrainedAt       time.Time `db:"trained_at" json:"trained_at" validate:"required"`
	TrainingRows    int       `db:"training_rows" json:"training_rows"`
	HoldoutRows     int       `db:"holdout_rows" json:"holdout_rows"`
	HeldOut         bool      `db:"held_out" json:"held_out"`
	Accuracy        float64   `db:"accuracy" json:"accuracy"`
	TopPickAccuracy *float64  `db:"top_pick_accuracy" json:"top_pick_accuracy,omitempty"`
	ROCAUC          *float64  `db:"roc_auc" json:"roc_auc,omitempty"`
	MissingMetrics  []string  `db:"missing_metrics" json:"missing_metrics,omitempty"`
	HasRegressor    bool      `db:"has_regressor" json:"has_regressor"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// GetMetric returns a named evaluation metric, if it was computed
func (m *ModelMetadata) GetMetric(name string) (float64, bool) {
	switch name {
	case "accuracy":
		return m.Accuracy, true
	case "roc_auc":
		if m.ROCAUC != nil {
			return *m.ROCAUC, true
		}
	case "top_pick_accuracy":
		if m.TopPickAccuracy != nil {
			return *m.TopPickAccuracy, true
		}
	}
	return 0, false
}
