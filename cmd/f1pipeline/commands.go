package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/f1-winner/internal/database"
	"github.com/yourusername/f1-winner/internal/export"
	"github.com/yourusername/f1-winner/internal/logger"
	"github.com/yourusername/f1-winner/internal/pipeline"
)

var (
	migrateVersion int
	backfillSeason []int
	skipIngest     bool
	targetSeason   int
	exportOut      string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := database.Migrate(cfg.GetDatabaseDSN(), migrateVersion, appLog)
		if err != nil {
			return err
		}
		fmt.Printf("Schema at version %d\n", version)
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Ingest results for the given seasons without rebuilding anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		ing, err := a.ingestion()
		if err != nil {
			return err
		}
		seasons := backfillSeason
		if len(seasons) == 0 {
			seasons = cfg.Pipeline.Seasons()
		}

		runID := uuid.New().String()
		return a.repos.Locker.WithRunLock(ctx, func(ctx context.Context) error {
			m, err := ing.IngestSeasons(ctx, logger.NewPipelineLogger(appLog, runID), seasons)
			if m != nil {
				fmt.Println(m.String())
			}
			return err
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		runner, err := a.runner(!skipIngest)
		if err != nil {
			return err
		}
		opts := pipeline.OptionsFromConfig(cfg.Pipeline)
		opts.SkipIngest = skipIngest
		if targetSeason > 0 {
			opts.TargetSeason = targetSeason
		}

		report, err := runner.Run(ctx, opts)
		if report != nil {
			if perr := printRunReport(os.Stdout, report); perr != nil {
				appLog.WithError(perr).Warn("Failed to print run report")
			}
		}
		return err
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Rebuild features and the training set, then train and publish the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		return a.repos.Locker.WithRunLock(ctx, func(ctx context.Context) error {
			if _, err := a.builder.Rebuild(ctx); err != nil {
				return err
			}
			if _, err := a.assembler.Rebuild(ctx); err != nil {
				return err
			}
			meta, err := a.trainer.Train(ctx)
			if err != nil {
				return err
			}
			return printModel(os.Stdout, meta)
		})
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast the championship with the current model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		season := cfg.Pipeline.TargetSeason
		if targetSeason > 0 {
			season = targetSeason
		}
		runID := uuid.New()
		return a.repos.Locker.WithRunLock(ctx, func(ctx context.Context) error {
			summary, err := a.forecaster.Run(ctx, season, runID)
			if err != nil {
				return err
			}
			appLog.WithFields(logrus.Fields{
				"run_id":    runID,
				"remaining": summary.RemainingEvents,
			}).Info("Forecast complete")
			return printOutcomes(os.Stdout, season, summary.Result)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:       "export [training|forecast]",
	Short:     "Write the training set or the stored forecast to a Parquet file",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"training", "forecast"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		out := exportOut
		if out == "" {
			out = filepath.Join(".", args[0]+".parquet")
		}
		exporter := export.NewExporter(a.repos, appLog)

		var n int
		switch args[0] {
		case "training":
			n, err = exporter.TrainingSet(ctx, out)
		case "forecast":
			season := cfg.Pipeline.TargetSeason
			if targetSeason > 0 {
				season = targetSeason
			}
			n, err = exporter.Forecast(ctx, season, out)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows to %s\n", n, out)
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateVersion, "version", -1, "Target schema version (-1 for latest, 0 to roll back everything)")
	backfillCmd.Flags().IntSliceVar(&backfillSeason, "seasons", nil, "Seasons to ingest (defaults to the configured history and target seasons)")
	runCmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "Rebuild from stored results without calling the data source")
	for _, c := range []*cobra.Command{runCmd, forecastCmd, exportCmd} {
		c.Flags().IntVar(&targetSeason, "season", 0, "Season to forecast (defaults to pipeline.target_season)")
	}
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (defaults to ./<table>.parquet)")
}
