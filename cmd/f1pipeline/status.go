package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/f1-winner/internal/models"
)

var statusRuns int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent runs, the current model and the stored forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		runs, err := a.repos.Run.Latest(ctx, statusRuns)
		if err != nil {
			return err
		}
		fmt.Println("Recent runs:")
		if err := printRuns(os.Stdout, runs); err != nil {
			return err
		}

		fmt.Println("\nCurrent model:")
		meta, err := a.repos.ModelMetadata.Get(ctx, cfg.Training.ModelName)
		switch {
		case errors.Is(err, models.ErrNotFound):
			fmt.Println("  none published")
		case err != nil:
			return err
		default:
			if err := printModel(os.Stdout, meta); err != nil {
				return err
			}
		}

		season := cfg.Pipeline.TargetSeason
		rows, err := a.repos.Forecast.ListBySeason(ctx, season)
		if err != nil {
			return err
		}
		fmt.Printf("\nSeason %d forecast:\n", season)
		if len(rows) == 0 {
			fmt.Println("  none stored")
			return nil
		}
		return printForecastRows(os.Stdout, rows)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 5, "Number of recent runs to show")
}
