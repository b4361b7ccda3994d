package ml

import (
	"math"

	"github.com/yourusername/f1-winner/internal/models"
)

// FeatureNames lists the model inputs in vector order
var FeatureNames = []string{
	"qualifying_score",
	"driver_form",
	"team_strength",
	"practice_pace",
	"sprint_finish",
	"grid_position",
}

// Vectorize maps a feature row onto the model input; missing values are NaN
func Vectorize(row *models.FeatureRow) []float64 {
	return []float64{
		row.QualifyingScore,
		floatOrNaN(row.DriverForm),
		floatOrNaN(row.TeamStrength),
		floatOrNaN(row.PracticePace),
		intOrNaN(row.SprintFinish),
		intOrNaN(row.GridPosition),
	}
}

// VectorizeAll maps rows onto a matrix in row order
func VectorizeAll(rows []*models.FeatureRow) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = Vectorize(r)
	}
	return out
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func intOrNaN(v *int) float64 {
	if v == nil {
		return math.NaN()
	}
	return float64(*v)
}
