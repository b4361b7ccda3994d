// Package pipeline runs ingest, feature build, training set assembly, training
// and forecasting as one unit under the store's run lock.
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/f1-winner/internal/models"
)

// Stage names a pipeline stage
type Stage string

// Pipeline stages in execution order
const (
	StageIngest      Stage = "ingest"
	StageFeatures    Stage = "features"
	StageTrainingSet Stage = "training_set"
	StageTrain       Stage = "train"
	StageForecast    Stage = "forecast"
)

// Stages lists every stage in execution order
var Stages = []Stage{StageIngest, StageFeatures, StageTrainingSet, StageTrain, StageForecast}

// State is the terminal state of a stage
type State string

// Stage states
const (
	StateCompleted State = "completed"
	StateRefused   State = "refused"
	StateSkipped   State = "skipped"
	StateFailed    State = "failed"
)

// Run outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// StageReport is the terminal state of one stage
type StageReport struct {
	Stage      Stage  `json:"stage"`
	State      State  `json:"state"`
	Rows       int    `json:"rows"`
	Reason     string `json:"reason,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// IngestionSummary is the part of the ingestion statistics kept in the report
type IngestionSummary struct {
	Seasons          int            `json:"seasons"`
	EventsSeen       int            `json:"events_seen"`
	EventsPending    int            `json:"events_pending"`
	ResultsWritten   int            `json:"results_written"`
	ResultsUnchanged int            `json:"results_unchanged"`
	ValidationErrors int            `json:"validation_errors"`
	Recovered        map[string]int `json:"recovered,omitempty"`
}

// ForecastSummary describes the stored forecast
type ForecastSummary struct {
	Season          int    `json:"season"`
	RemainingEvents int    `json:"remaining_events"`
	Participants    int    `json:"participants"`
	Simulated       bool   `json:"simulated"`
	Trials          int    `json:"trials"`
	Seed            int64  `json:"seed"`
	ModelDigest     string `json:"model_digest,omitempty"`
}

// RunReport is the structured result of one pipeline run
type RunReport struct {
	RunID      uuid.UUID             `json:"run_id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Outcome    string                `json:"outcome"`
	Stages     []StageReport         `json:"stages"`
	Ingestion  *IngestionSummary     `json:"ingestion,omitempty"`
	Model      *models.ModelMetadata `json:"model,omitempty"`
	Forecast   *ForecastSummary      `json:"forecast,omitempty"`
}

// Stage returns the report for s, or nil if the stage has not been reached
func (r *RunReport) Stage(s Stage) *StageReport {
	for i := range r.Stages {
		if r.Stages[i].Stage == s {
			return &r.Stages[i]
		}
	}
	return nil
}

// States maps stage name to state for logging
func (r *RunReport) States() map[string]string {
	out := make(map[string]string, len(r.Stages))
	for _, s := range r.Stages {
		out[string(s.Stage)] = string(s.State)
	}
	return out
}

// outcome is failed when any stage failed, partial when any was refused or
// skipped, and succeeded otherwise
func (r *RunReport) outcome() string {
	result := OutcomeSucceeded
	for _, s := range r.Stages {
		switch s.State {
		case StateFailed:
			return OutcomeFailed
		case StateRefused, StateSkipped:
			result = OutcomePartial
		}
	}
	return result
}
