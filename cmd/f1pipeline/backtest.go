package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/f1-winner/internal/backtest"
	"github.com/yourusername/f1-winner/internal/ml"
)

var (
	backtestMinSeasons int
	backtestCSV        string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Score the win model season by season on the stored training set",
	Long: `Walks forward through the stored training set: each window trains on every
earlier season and scores the next one out of sample. Nothing is published.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		rows, err := a.repos.Training.List(ctx)
		if err != nil {
			return fmt.Errorf("load training rows: %w", err)
		}
		opts := ml.TrainOptionsFromConfig(cfg.Training)
		result, err := backtest.RunWalkForward(ctx, rows, backtest.WalkForwardConfig{
			Train:           opts,
			MinTrainSeasons: backtestMinSeasons,
		}, appLog)
		if err != nil {
			return err
		}

		if err := printWalkForward(os.Stdout, result); err != nil {
			return err
		}
		if backtestCSV != "" {
			if err := backtest.GenerateCSVExport(result, backtestCSV); err != nil {
				return err
			}
			fmt.Printf("Wrote %d windows to %s\n", len(result.Windows), backtestCSV)
		}
		return nil
	},
}

func printWalkForward(w io.Writer, result backtest.WalkForwardResult) error {
	if len(result.Windows) == 0 {
		_, err := fmt.Fprintln(w, "No season had enough earlier data to score")
		return err
	}
	data := make([][]string, 0, len(result.Windows))
	for _, win := range result.Windows {
		data = append(data, []string{
			strconv.Itoa(win.TestSeason),
			joinSeasons(win.TrainSeasons),
			strconv.Itoa(win.TestEvents),
			fmt.Sprintf("%.3f", win.Test.Accuracy),
			optional(win.Test.TopPickAccuracy),
			optional(win.Test.ROCAUC),
			optional(win.Baseline),
		})
	}
	if err := renderTable(w, []string{"Season", "Trained On", "Events", "Accuracy", "Top Pick", "ROC AUC", "Pole Baseline"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Consistency %.2f, overfit %.2f, skipped %v\n",
		result.ConsistencyScore, result.OverfitScore, result.Skipped)
	return err
}

func joinSeasons(seasons []int) string {
	parts := make([]string, len(seasons))
	for i, s := range seasons {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}

func init() {
	backtestCmd.Flags().IntVar(&backtestMinSeasons, "min-seasons", 1, "Earlier seasons required before a season is scored")
	backtestCmd.Flags().StringVar(&backtestCSV, "csv", "", "Also write the windows to this CSV file")
}
