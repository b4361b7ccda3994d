package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/pipeline"
)

type fakeRunner struct {
	report *pipeline.RunReport
	err    error
	opts   []pipeline.Options
}

func (f *fakeRunner) Run(_ context.Context, opts pipeline.Options) (*pipeline.RunReport, error) {
	f.opts = append(f.opts, opts)
	return f.report, f.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestSchedulePipelineRegistersDailyJob(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, quietLogger())

	require.NoError(t, s.SchedulePipeline("0 6 * * *", pipeline.Options{TargetSeason: 2025}))
	require.Len(t, s.Entries(), 1)
	assert.True(t, s.GetNextRun().IsZero())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, s.IsRunning())
	next := s.GetNextRun()
	assert.False(t, next.IsZero())
	assert.Equal(t, 6, next.Hour())
	assert.Error(t, s.SchedulePipeline("@daily", pipeline.Options{}))
}

func TestSchedulePipelineRejectsBadExpression(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, quietLogger())
	assert.Error(t, s.SchedulePipeline("not a cron", pipeline.Options{}))
	assert.Error(t, s.Start(), "no jobs scheduled")
}

func TestRunOnceKeepsLastReport(t *testing.T) {
	report := &pipeline.RunReport{RunID: uuid.New(), Outcome: pipeline.OutcomePartial}
	runner := &fakeRunner{report: report}
	s := NewScheduler(runner, quietLogger())

	s.RunOnce(context.Background(), pipeline.Options{TargetSeason: 2025})

	require.Len(t, runner.opts, 1)
	assert.Equal(t, 2025, runner.opts[0].TargetSeason)
	assert.Same(t, report, s.LastReport())
}

func TestRunOnceDropsRejectedRun(t *testing.T) {
	s := NewScheduler(&fakeRunner{err: models.ErrRunInProgress}, quietLogger())
	s.RunOnce(context.Background(), pipeline.Options{})
	assert.Nil(t, s.LastReport())
}

func TestRunOnceKeepsFailedReport(t *testing.T) {
	report := &pipeline.RunReport{RunID: uuid.New(), Outcome: pipeline.OutcomeFailed}
	s := NewScheduler(&fakeRunner{report: report, err: errors.New("features stage: boom")}, quietLogger())
	s.RunOnce(context.Background(), pipeline.Options{})
	assert.Same(t, report, s.LastReport())
}

type slowRunner struct {
	delay   time.Duration
	started chan struct{}
	once    sync.Once
}

func (r *slowRunner) Run(_ context.Context, _ pipeline.Options) (*pipeline.RunReport, error) {
	r.once.Do(func() { close(r.started) })
	time.Sleep(r.delay)
	return &pipeline.RunReport{RunID: uuid.New(), Outcome: pipeline.OutcomeSucceeded}, nil
}

func TestStopWaitsForRunningJob(t *testing.T) {
	runner := &slowRunner{delay: 200 * time.Millisecond, started: make(chan struct{})}
	s := NewScheduler(runner, quietLogger())
	s.gracefulTimeout = 2 * time.Second

	require.NoError(t, s.SchedulePipeline("@every 1s", pipeline.Options{}))
	require.NoError(t, s.Start())

	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job never started")
	}

	start := time.Now()
	require.NoError(t, s.Stop())
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, s.IsRunning())
	require.NotNil(t, s.LastReport())
	assert.Equal(t, pipeline.OutcomeSucceeded, s.LastReport().Outcome)
}
