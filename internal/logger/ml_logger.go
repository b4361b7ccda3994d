// Package logger provides ML-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// MLLogger provides dedicated logging for model training and inference.
type MLLogger struct {
	*logrus.Entry
}

// NewMLLogger creates a new ML logger.
func NewMLLogger(baseLogger *logrus.Logger) *MLLogger {
	return &MLLogger{
		Entry: baseLogger.WithField("component", "ml"),
	}
}

// LogModelTraining logs a completed training run.
func (ml *MLLogger) LogModelTraining(modelName, digest string, trainingRows, holdoutRows int, metrics map[string]float64, heldOut bool) {
	ml.WithFields(logrus.Fields{
		"model_name":    modelName,
		"digest":        digest,
		"training_rows": trainingRows,
		"holdout_rows":  holdoutRows,
		"metrics":       metrics,
		"held_out":      heldOut,
	}).Info("Model training completed")
}

// LogMetricUnavailable logs a metric that could not be computed on the evaluated split.
func (ml *MLLogger) LogMetricUnavailable(modelName, metric, reason string) {
	ml.WithFields(logrus.Fields{
		"model_name": modelName,
		"metric":     metric,
		"reason":     reason,
	}).Warn("Model metric unavailable")
}

// LogImputation logs the fitted imputation value of a feature column.
func (ml *MLLogger) LogImputation(feature string, median float64, observed int) {
	entry := ml.WithFields(logrus.Fields{
		"feature":  feature,
		"median":   median,
		"observed": observed,
	})
	if observed == 0 {
		entry.Warn("Feature has no observed values, imputing zero")
		return
	}
	entry.Debug("Feature imputation fitted")
}

// LogPrediction logs an inference batch.
func (ml *MLLogger) LogPrediction(modelName, digest string, rows int, cacheHit bool) {
	ml.WithFields(logrus.Fields{
		"model_name": modelName,
		"digest":     digest,
		"rows":       rows,
		"cache_hit":  cacheHit,
	}).Debug("Model prediction completed")
}
