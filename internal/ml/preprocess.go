package ml

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MedianImputer replaces missing values with the median of the fitted column
type MedianImputer struct {
	Medians  []float64 `json:"medians"`
	Observed []int     `json:"observed"`
}

// Fit computes column medians over non-missing values. A column with no
// observed values imputes 0.
func (im *MedianImputer) Fit(X [][]float64) error {
	if len(X) == 0 {
		return ErrInsufficientData
	}
	width := len(X[0])
	im.Medians = make([]float64, width)
	im.Observed = make([]int, width)

	for j := 0; j < width; j++ {
		var col []float64
		for _, x := range X {
			if len(x) != width {
				return fmt.Errorf("%w: row has %d values, want %d", ErrFeatureMismatch, len(x), width)
			}
			if !math.IsNaN(x[j]) {
				col = append(col, x[j])
			}
		}
		im.Observed[j] = len(col)
		if len(col) == 0 {
			continue
		}
		sort.Float64s(col)
		im.Medians[j] = stat.Quantile(0.5, stat.Empirical, col, nil)
	}
	return nil
}

// Transform returns a copy of X with missing values imputed
func (im *MedianImputer) Transform(X [][]float64) ([][]float64, error) {
	if im.Medians == nil {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		if len(x) != len(im.Medians) {
			return nil, fmt.Errorf("%w: row has %d values, want %d", ErrFeatureMismatch, len(x), len(im.Medians))
		}
		row := make([]float64, len(x))
		for j, v := range x {
			if math.IsNaN(v) {
				v = im.Medians[j]
			}
			row[j] = v
		}
		out[i] = row
	}
	return out, nil
}

// Standardizer centres columns and scales them to unit variance
type Standardizer struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// Fit computes column means and standard deviations. Constant columns keep a
// scale of 1.
func (s *Standardizer) Fit(X [][]float64) error {
	if len(X) == 0 {
		return ErrInsufficientData
	}
	width := len(X[0])
	s.Means = make([]float64, width)
	s.Stds = make([]float64, width)
	col := make([]float64, len(X))
	for j := 0; j < width; j++ {
		for i, x := range X {
			col[i] = x[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if len(X) < 2 || math.IsNaN(std) || std < 1e-12 {
			std = 1
		}
		s.Means[j] = mean
		s.Stds[j] = std
	}
	return nil
}

// Transform returns a standardized copy of X
func (s *Standardizer) Transform(X [][]float64) ([][]float64, error) {
	if s.Means == nil {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		if len(x) != len(s.Means) {
			return nil, fmt.Errorf("%w: row has %d values, want %d", ErrFeatureMismatch, len(x), len(s.Means))
		}
		row := make([]float64, len(x))
		for j, v := range x {
			row[j] = (v - s.Means[j]) / s.Stds[j]
		}
		out[i] = row
	}
	return out, nil
}
