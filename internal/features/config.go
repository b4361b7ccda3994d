// Package features derives point-in-time feature rows from stored session results.
package features

import (
	"github.com/yourusername/f1-winner/internal/config"
	"github.com/yourusername/f1-winner/internal/models"
)

// Scope selects which earlier events a rolling window may look at
type Scope string

// Rolling window scopes
const (
	ScopeSeason Scope = config.FormScopeSeason
	ScopeAll    Scope = config.FormScopeAll
)

// Weights weights the components of the qualifying score
type Weights struct {
	Grid  float64
	Stage float64
	Pace  float64
}

// Options controls feature construction
type Options struct {
	FormWindow     int
	FormMinSamples int
	TeamWindow     int
	TeamMinSamples int
	Scope          Scope
	Weights        Weights
}

// DefaultOptions returns the windows used when nothing is configured
func DefaultOptions() Options {
	return Options{
		FormWindow:     5,
		FormMinSamples: 3,
		TeamWindow:     24,
		TeamMinSamples: 3,
		Scope:          ScopeSeason,
		Weights:        Weights{Grid: 0.5, Stage: 0.3, Pace: 0.2},
	}
}

// OptionsFromConfig maps the features configuration section onto Options
func OptionsFromConfig(cfg config.FeaturesConfig) Options {
	return Options{
		FormWindow:     cfg.FormWindow,
		FormMinSamples: cfg.FormMinSamples,
		TeamWindow:     cfg.TeamWindow,
		TeamMinSamples: cfg.TeamMinSamples,
		Scope:          Scope(cfg.FormScope),
		Weights: Weights{
			Grid:  cfg.QualifyingWeights.Grid,
			Stage: cfg.QualifyingWeights.Stage,
			Pace:  cfg.QualifyingWeights.Pace,
		},
	}
}

// inScope reports whether an earlier event may contribute to a window for target
func (o Options) inScope(earlier, target models.EventKey) bool {
	if !earlier.Before(target) {
		return false
	}
	return o.Scope == ScopeAll || earlier.Season == target.Season
}
