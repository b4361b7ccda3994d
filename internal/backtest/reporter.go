package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// GenerateCSVExport writes one line per scored window for spreadsheets
func GenerateCSVExport(result WalkForwardResult, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outputPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{
		"test_season", "train_rows", "test_rows", "test_events",
		"train_accuracy", "test_accuracy", "test_top_pick", "test_roc_auc", "pole_baseline",
	})
	for _, win := range result.Windows {
		_ = w.Write([]string{
			strconv.Itoa(win.TestSeason),
			strconv.Itoa(win.TrainRows),
			strconv.Itoa(win.TestRows),
			strconv.Itoa(win.TestEvents),
			formatFloat(&win.Train.Accuracy),
			formatFloat(&win.Test.Accuracy),
			formatFloat(win.Test.TopPickAccuracy),
			formatFloat(win.Test.ROCAUC),
			formatFloat(win.Baseline),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	return f.Close()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
