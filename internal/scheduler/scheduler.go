// Package scheduler runs the pipeline on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/pipeline"
)

// PipelineRunner is the part of pipeline.Runner the scheduler drives
type PipelineRunner interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.RunReport, error)
}

// Scheduler manages scheduled pipeline jobs
type Scheduler struct {
	cron            *cron.Cron
	runner          PipelineRunner
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	runTimeout      time.Duration
	gracefulTimeout time.Duration
	lastReport      *pipeline.RunReport
}

// NewScheduler creates a new scheduler
func NewScheduler(runner PipelineRunner, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		runner:          runner,
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		runTimeout:      4 * time.Hour,
		gracefulTimeout: 30 * time.Second,
	}
}

// SchedulePipeline schedules a full pipeline run with the given options
func (s *Scheduler) SchedulePipeline(cronExpression string, opts pipeline.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() { s.RunOnce(context.Background(), opts) })
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"cron":          cronExpression,
		"target_season": opts.TargetSeason,
	}).Info("Scheduled pipeline job")

	return nil
}

// RunOnce runs the pipeline immediately. A run rejected because another holds
// the lock is logged and dropped.
func (s *Scheduler) RunOnce(ctx context.Context, opts pipeline.Options) {
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	report, err := s.runner.Run(ctx, opts)
	if errors.Is(err, models.ErrRunInProgress) {
		s.logger.Warn("Scheduled pipeline run skipped, another run is in progress")
		return
	}
	if report != nil {
		s.mu.Lock()
		s.lastReport = report
		s.mu.Unlock()
	}
	if err != nil {
		s.logger.WithError(err).Error("Scheduled pipeline run failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"outcome": report.Outcome,
	}).Info("Scheduled pipeline run finished")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for a running job up to the graceful
// timeout. The lock is released before waiting so the job can record its report.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	done := s.cron.Stop().Done()
	s.mu.Unlock()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastReport returns the report of the most recent scheduled run, if any
func (s *Scheduler) LastReport() *pipeline.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
