package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/f1-winner/internal/health"
	"github.com/yourusername/f1-winner/internal/metrics"
	"github.com/yourusername/f1-winner/internal/pipeline"
	"github.com/yourusername/f1-winner/internal/scheduler"
)

var runOnStart bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on the configured cron schedule and serve health and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		runner, err := a.runner(true)
		if err != nil {
			return err
		}
		sched := scheduler.NewScheduler(runner, appLog)
		opts := pipeline.OptionsFromConfig(cfg.Pipeline)
		if err := sched.SchedulePipeline(cfg.Pipeline.Schedule, opts); err != nil {
			return err
		}

		hc := health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Port:        cfg.Pipeline.HealthPort,
			Logger:      appLog,
			Runs:        sched,
			NextRun:     sched.GetNextRun,
		}
		if a.db != nil {
			hc.DB = a.db
		}
		hs := health.NewServer(hc)
		if err := hs.Start(ctx); err != nil {
			return err
		}

		if cfg.Metrics.Enabled {
			metrics.InitRegistry()
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, metrics.Handler())
			ms := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					appLog.WithError(err).Error("Metrics server error")
				}
			}()
			defer ms.Close()
		}

		if err := sched.Start(); err != nil {
			return err
		}
		hs.SetReady(true)
		appLog.WithField("next_run", sched.GetNextRun()).Info("Scheduler running")

		if runOnStart {
			go sched.RunOnce(ctx, opts)
		}

		<-ctx.Done()
		appLog.Info("Shutdown signal received")
		hs.SetReady(false)
		return sched.Stop()
	},
}

func init() {
	scheduleCmd.Flags().BoolVar(&runOnStart, "run-now", false, "Run the pipeline once immediately after starting")
}
