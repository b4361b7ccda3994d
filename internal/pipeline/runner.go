package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/config"
	"github.com/yourusername/f1-winner/internal/forecast"
	"github.com/yourusername/f1-winner/internal/logger"
	"github.com/yourusername/f1-winner/internal/metrics"
	"github.com/yourusername/f1-winner/internal/ml"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/repository"
	"github.com/yourusername/f1-winner/internal/service"
)

// Ingester pulls source data into the result store
type Ingester interface {
	IngestSeasons(ctx context.Context, runLog *logger.PipelineLogger, seasons []int) (*service.IngestionMetrics, error)
}

// FeatureBuilder rebuilds the feature table
type FeatureBuilder interface {
	Rebuild(ctx context.Context) ([]*models.FeatureRow, error)
}

// SetAssembler rebuilds the labelled training table
type SetAssembler interface {
	Rebuild(ctx context.Context) ([]*models.TrainingRow, error)
}

// ModelTrainer fits and publishes the win model
type ModelTrainer interface {
	Train(ctx context.Context) (*models.ModelMetadata, error)
}

// Forecaster stores a championship forecast for a season
type Forecaster interface {
	Run(ctx context.Context, season int, runID uuid.UUID) (*forecast.Summary, error)
}

// Components are the stage implementations. A nil Ingester skips ingestion.
type Components struct {
	Ingester   Ingester
	Builder    FeatureBuilder
	Assembler  SetAssembler
	Trainer    ModelTrainer
	Forecaster Forecaster
}

// Options scopes one run
type Options struct {
	Seasons      []int
	TargetSeason int
	SkipIngest   bool
}

// OptionsFromConfig ingests the history seasons and the target season and forecasts the target
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{Seasons: cfg.Seasons(), TargetSeason: cfg.TargetSeason}
}

// skipError marks a stage that chose not to run
type skipError struct{ reason string }

func (e *skipError) Error() string { return e.reason }

// Runner executes the pipeline stages in order
type Runner struct {
	c      Components
	locker repository.Locker
	runs   repository.RunRepository
	logger *logrus.Logger
	audit  *logger.AuditLogger
	now    func() time.Time
}

// NewRunner creates a pipeline runner over the given store
func NewRunner(repos *repository.Repositories, c Components, log *logrus.Logger) *Runner {
	return &Runner{
		c:      c,
		locker: repos.Locker,
		runs:   repos.Run,
		logger: log,
		audit:  logger.NewAuditLogger(log),
		now:    time.Now,
	}
}

// Run executes one pipeline run under the run lock and records its report.
// It returns models.ErrRunInProgress without running when another run holds
// the lock. A failed stage stops the run; its error is returned with the report.
func (r *Runner) Run(ctx context.Context, opts Options) (*RunReport, error) {
	runID := uuid.New()

	var report *RunReport
	var runErr error
	err := r.locker.WithRunLock(ctx, func(ctx context.Context) error {
		r.audit.LogRunLock(runID.String(), true)
		defer r.audit.LogRunLock(runID.String(), false)

		report, runErr = r.execute(ctx, runID, opts)
		return r.record(ctx, report)
	})
	if errors.Is(err, models.ErrRunInProgress) {
		r.audit.LogRunRejected(runID.String())
		metrics.RecordRun(OutcomeRejected, float64(r.now().Unix()))
		return nil, err
	}
	if runErr != nil {
		return report, runErr
	}
	if err != nil {
		return report, fmt.Errorf("record run %s: %w", runID, err)
	}
	return report, nil
}

func (r *Runner) execute(ctx context.Context, runID uuid.UUID, opts Options) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{RunID: runID, StartedAt: r.now().UTC()}
	runLog := logger.NewPipelineLogger(r.logger, runID.String())

	steps := []struct {
		stage Stage
		fn    func(context.Context) (int, error)
	}{
		{StageIngest, func(ctx context.Context) (int, error) { return r.ingest(ctx, runLog, report, opts) }},
		{StageFeatures, r.buildFeatures},
		{StageTrainingSet, r.assemble},
		{StageTrain, func(ctx context.Context) (int, error) { return r.train(ctx, report) }},
		{StageForecast, func(ctx context.Context) (int, error) { return r.forecast(ctx, report, runID, opts) }},
	}

	var failed Stage
	var runErr error
	for _, step := range steps {
		if runErr != nil {
			report.Stages = append(report.Stages, StageReport{
				Stage:  step.stage,
				State:  StateSkipped,
				Reason: fmt.Sprintf("%s failed", failed),
			})
			runLog.LogStageSkipped(string(step.stage), string(failed)+" failed")
			metrics.RecordStage(string(step.stage), string(StateSkipped), 0)
			continue
		}

		if err := r.runStage(ctx, runLog, report, step.stage, step.fn); err != nil {
			failed = step.stage
			runErr = fmt.Errorf("%s stage: %w", step.stage, err)
		}
	}

	report.FinishedAt = r.now().UTC()
	report.Outcome = report.outcome()
	metrics.RecordRun(report.Outcome, float64(report.FinishedAt.Unix()))
	runLog.LogRunSummary(report.Outcome, report.States(), time.Since(start))
	return report, runErr
}

// runStage records the stage's terminal state and returns its error only when
// the stage failed
func (r *Runner) runStage(ctx context.Context, runLog *logger.PipelineLogger, report *RunReport, stage Stage, fn func(context.Context) (int, error)) error {
	runLog.LogStageStart(string(stage))
	start := time.Now()
	rows, err := fn(ctx)
	elapsed := time.Since(start)

	sr := StageReport{Stage: stage, Rows: rows, DurationMS: elapsed.Milliseconds()}
	var skip *skipError
	switch {
	case err == nil:
		sr.State = StateCompleted
		runLog.LogStageComplete(string(stage), rows, elapsed)
	case errors.As(err, &skip):
		sr.State = StateSkipped
		sr.Reason = skip.reason
		runLog.LogStageSkipped(string(stage), skip.reason)
	case ml.IsRefusal(err):
		sr.State = StateRefused
		sr.Reason = err.Error()
		runLog.LogStageRefused(string(stage), err.Error())
	case errors.Is(err, forecast.ErrNoModel):
		sr.State = StateSkipped
		sr.Reason = err.Error()
		runLog.LogStageSkipped(string(stage), err.Error())
	default:
		sr.State = StateFailed
		sr.Reason = err.Error()
		runLog.LogStageFailed(string(stage), err)
	}
	report.Stages = append(report.Stages, sr)
	metrics.RecordStage(string(stage), string(sr.State), elapsed.Seconds())

	if sr.State == StateFailed {
		return err
	}
	return nil
}

func (r *Runner) ingest(ctx context.Context, runLog *logger.PipelineLogger, report *RunReport, opts Options) (int, error) {
	if r.c.Ingester == nil || opts.SkipIngest {
		return 0, &skipError{reason: "ingestion disabled"}
	}
	if len(opts.Seasons) == 0 {
		return 0, &skipError{reason: "no seasons configured"}
	}

	m, err := r.c.Ingester.IngestSeasons(ctx, runLog, opts.Seasons)
	if m != nil {
		report.Ingestion = &IngestionSummary{
			Seasons:          m.Seasons,
			EventsSeen:       m.EventsSeen,
			EventsPending:    m.EventsPending,
			ResultsWritten:   m.ResultsWritten,
			ResultsUnchanged: m.ResultsUnchanged,
			ValidationErrors: m.ValidationErrors,
			Recovered:        m.Recovered,
		}
	}
	if err != nil {
		return 0, err
	}
	return m.ResultsWritten, nil
}

func (r *Runner) buildFeatures(ctx context.Context) (int, error) {
	rows, err := r.c.Builder.Rebuild(ctx)
	if err != nil {
		return 0, err
	}
	metrics.UpdateFeatureRows(len(rows))
	return len(rows), nil
}

func (r *Runner) assemble(ctx context.Context) (int, error) {
	rows, err := r.c.Assembler.Rebuild(ctx)
	if err != nil {
		return 0, err
	}
	metrics.UpdateTrainingRows(len(rows))
	return len(rows), nil
}

func (r *Runner) train(ctx context.Context, report *RunReport) (int, error) {
	meta, err := r.c.Trainer.Train(ctx)
	if err != nil {
		return 0, err
	}
	report.Model = meta
	return meta.TrainingRows + meta.HoldoutRows, nil
}

func (r *Runner) forecast(ctx context.Context, report *RunReport, runID uuid.UUID, opts Options) (int, error) {
	if opts.TargetSeason == 0 {
		return 0, &skipError{reason: "no target season"}
	}
	summary, err := r.c.Forecaster.Run(ctx, opts.TargetSeason, runID)
	if err != nil {
		return 0, err
	}
	report.Forecast = &ForecastSummary{
		Season:          summary.Season,
		RemainingEvents: summary.RemainingEvents,
		Participants:    summary.Participants,
		Simulated:       summary.Result.Simulated,
		Trials:          summary.Result.Trials,
		Seed:            summary.Result.Seed,
		ModelDigest:     summary.ModelDigest,
	}
	return summary.Participants, nil
}

func (r *Runner) record(ctx context.Context, report *RunReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	finished := report.FinishedAt
	return r.runs.Record(ctx, &models.PipelineRun{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: &finished,
		Outcome:    report.Outcome,
		Report:     body,
	})
}
