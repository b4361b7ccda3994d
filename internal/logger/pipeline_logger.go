// Package logger provides pipeline stage logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineLogger provides dedicated logging for pipeline stages.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger bound to a run id.
func NewPipelineLogger(baseLogger *logrus.Logger, runID string) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithFields(logrus.Fields{
			"component": "pipeline",
			"run_id":    runID,
		}),
	}
}

// LogStageStart logs the beginning of a stage.
func (pl *PipelineLogger) LogStageStart(stage string) {
	pl.WithField("stage", stage).Info("Stage started")
}

// LogStageComplete logs a successful stage with its row count.
func (pl *PipelineLogger) LogStageComplete(stage string, rows int, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"stage":       stage,
		"rows":        rows,
		"duration_ms": duration.Milliseconds(),
	}).Info("Stage completed")
}

// LogStageRefused logs a stage that declined to run on its inputs.
func (pl *PipelineLogger) LogStageRefused(stage, reason string) {
	pl.WithFields(logrus.Fields{
		"stage":  stage,
		"reason": reason,
	}).Warn("Stage refused")
}

// LogStageFailed logs a stage failure.
func (pl *PipelineLogger) LogStageFailed(stage string, err error) {
	pl.WithField("stage", stage).WithError(err).Error("Stage failed")
}

// LogStageSkipped logs a stage that did not run because an earlier stage stopped the run.
func (pl *PipelineLogger) LogStageSkipped(stage, cause string) {
	pl.WithFields(logrus.Fields{
		"stage": stage,
		"cause": cause,
	}).Info("Stage skipped")
}

// LogRecovered logs a per-event data problem the run continued past.
func (pl *PipelineLogger) LogRecovered(stage, eventKey, session string, err error) {
	pl.WithFields(logrus.Fields{
		"stage":   stage,
		"event":   eventKey,
		"session": session,
	}).WithError(err).Warn("Recovered data source error")
}

// LogRunSummary logs the terminal state of a whole run.
func (pl *PipelineLogger) LogRunSummary(outcome string, stages map[string]string, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"outcome":     outcome,
		"stages":      stages,
		"duration_ms": duration.Milliseconds(),
	}).Info("Pipeline run finished")
}
