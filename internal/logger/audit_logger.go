// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging for state-changing operations.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogTableRebuild logs a derived table replaced by a staging swap.
func (al *AuditLogger) LogTableRebuild(table string, rows int) {
	al.WithFields(logrus.Fields{
		"table": table,
		"rows":  rows,
	}).Info("Derived table rebuilt")
}

// LogArtifactPublished logs a model pointer moving to a new artifact.
func (al *AuditLogger) LogArtifactPublished(modelName, previousDigest, digest string) {
	al.WithFields(logrus.Fields{
		"model_name":      modelName,
		"previous_digest": previousDigest,
		"digest":          digest,
	}).Info("Model artifact published")
}

// LogRunLock logs acquisition or release of the run lock.
func (al *AuditLogger) LogRunLock(runID string, acquired bool) {
	action := "released"
	if acquired {
		action = "acquired"
	}
	al.WithFields(logrus.Fields{
		"run_id": runID,
		"action": action,
	}).Info("Run lock " + action)
}

// LogRunRejected logs a run that could not start because another holds the lock.
func (al *AuditLogger) LogRunRejected(runID string) {
	al.WithField("run_id", runID).Warn("Run rejected, another run is in progress")
}
