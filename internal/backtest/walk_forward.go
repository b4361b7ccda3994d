// Package backtest replays the win model season by season: every window trains
// on the seasons before a test season and scores that season out of sample.
package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/ml"
	"github.com/yourusername/f1-winner/internal/models"
)

// WalkForwardConfig configures a season walk-forward evaluation
type WalkForwardConfig struct {
	Train           ml.TrainOptions
	// MinTrainRows skips windows with fewer training rows. Zero falls back to Train.MinRows.
	MinTrainRows    int
	// MinTrainSeasons is the number of earlier seasons a window needs before it is scored.
	MinTrainSeasons int
}

// Window is one train-on-the-past, test-on-the-next-season step
type Window struct {
	WindowID     int      `json:"window_id"`
	TrainSeasons []int    `json:"train_seasons"`
	TestSeason   int      `json:"test_season"`
	TrainRows    int      `json:"train_rows"`
	TestRows     int      `json:"test_rows"`
	TestEvents   int      `json:"test_events"`
	Train        Scores   `json:"train"`
	Test         Scores   `json:"test"`
	Baseline     *float64 `json:"pole_baseline,omitempty"`
}

// Scores flattens an ml.Evaluation for reporting
type Scores struct {
	Accuracy        float64  `json:"accuracy"`
	TopPickAccuracy *float64 `json:"top_pick_accuracy,omitempty"`
	ROCAUC          *float64 `json:"roc_auc,omitempty"`
}

// WalkForwardResult aggregates every scored window
type WalkForwardResult struct {
	Windows          []Window `json:"windows"`
	Skipped          []int    `json:"skipped_seasons,omitempty"`
	MeanAccuracy     float64  `json:"mean_accuracy"`
	MeanTopPick      *float64 `json:"mean_top_pick_accuracy,omitempty"`
	MeanBaseline     *float64 `json:"mean_pole_baseline,omitempty"`
	ConsistencyScore float64  `json:"consistency_score"`
	OverfitScore     float64  `json:"overfit_score"`
}

// RunWalkForward trains on all seasons strictly before each test season and
// evaluates on that season. Windows whose training slice is too small or has a
// single class are skipped rather than failing the run.
func RunWalkForward(ctx context.Context, rows []*models.TrainingRow, cfg WalkForwardConfig, log *logrus.Logger) (WalkForwardResult, error) {
	if cfg.MinTrainSeasons <= 0 {
		cfg.MinTrainSeasons = 1
	}
	minRows := cfg.MinTrainRows
	if minRows <= 0 {
		minRows = cfg.Train.MinRows
	}

	bySeason := make(map[int][]*models.TrainingRow)
	for _, r := range rows {
		bySeason[r.Season] = append(bySeason[r.Season], r)
	}
	seasons := make([]int, 0, len(bySeason))
	for s := range bySeason {
		seasons = append(seasons, s)
	}
	sort.Ints(seasons)

	var result WalkForwardResult
	var train []*models.TrainingRow
	for i, season := range seasons {
		if err := ctx.Err(); err != nil {
			return WalkForwardResult{}, err
		}
		test := bySeason[season]
		if i < cfg.MinTrainSeasons {
			train = append(train, test...)
			continue
		}

		w, ok, err := runWindow(len(result.Windows)+1, seasons[:i], season, train, test, minRows, cfg.Train)
		if err != nil {
			return WalkForwardResult{}, fmt.Errorf("season %d: %w", season, err)
		}
		if ok {
			result.Windows = append(result.Windows, w)
			log.WithFields(logrus.Fields{
				"test_season": season,
				"train_rows":  w.TrainRows,
				"test_rows":   w.TestRows,
				"accuracy":    w.Test.Accuracy,
			}).Debug("Walk-forward window scored")
		} else {
			result.Skipped = append(result.Skipped, season)
			log.WithFields(logrus.Fields{
				"test_season": season,
				"train_rows":  len(train),
			}).Warn("Walk-forward window skipped")
		}
		train = append(train, test...)
	}

	aggregate(&result)
	return result, nil
}

func runWindow(id int, trainSeasons []int, season int, train, test []*models.TrainingRow, minRows int, opts ml.TrainOptions) (Window, bool, error) {
	if len(train) < minRows || !ml.HasBothClasses(train) || len(test) == 0 {
		return Window{}, false, nil
	}

	art, err := ml.FitArtifact(train, opts)
	if err != nil {
		return Window{}, false, err
	}
	model, err := ml.NewModel(art)
	if err != nil {
		return Window{}, false, err
	}
	trainEv, err := ml.EvaluateRows(model, train)
	if err != nil {
		return Window{}, false, err
	}
	testEv, err := ml.EvaluateRows(model, test)
	if err != nil {
		return Window{}, false, err
	}

	return Window{
		WindowID:     id,
		TrainSeasons: append([]int(nil), trainSeasons...),
		TestSeason:   season,
		TrainRows:    len(train),
		TestRows:     len(test),
		TestEvents:   countEvents(test),
		Train:        scores(trainEv),
		Test:         scores(testEv),
		Baseline:     PoleBaseline(test),
	}, true, nil
}

func scores(ev ml.Evaluation) Scores {
	return Scores{Accuracy: ev.Accuracy, TopPickAccuracy: ev.TopPickAccuracy, ROCAUC: ev.ROCAUC}
}

func countEvents(rows []*models.TrainingRow) int {
	seen := make(map[models.EventKey]struct{})
	for _, r := range rows {
		seen[r.EventKey()] = struct{}{}
	}
	return len(seen)
}

func aggregate(result *WalkForwardResult) {
	if len(result.Windows) == 0 {
		return
	}
	var acc float64
	var top, base meanAccumulator
	for _, w := range result.Windows {
		acc += w.Test.Accuracy
		top.add(w.Test.TopPickAccuracy)
		base.add(w.Baseline)
	}
	result.MeanAccuracy = acc / float64(len(result.Windows))
	result.MeanTopPick = top.mean()
	result.MeanBaseline = base.mean()
	result.ConsistencyScore = CalculateConsistency(result.Windows)
	result.OverfitScore = calculateOverfitScore(result.Windows)
}

type meanAccumulator struct {
	sum float64
	n   int
}

func (m *meanAccumulator) add(v *float64) {
	if v != nil {
		m.sum += *v
		m.n++
	}
}

func (m *meanAccumulator) mean() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

// CalculateConsistency returns the share of windows in which the model's top
// pick was right at least as often as the pole sitter
func CalculateConsistency(windows []Window) float64 {
	if len(windows) == 0 {
		return 0
	}
	beat := 0
	for _, w := range windows {
		if w.Test.TopPickAccuracy == nil {
			continue
		}
		if w.Baseline == nil || *w.Test.TopPickAccuracy >= *w.Baseline {
			beat++
		}
	}
	return float64(beat) / float64(len(windows))
}

// calculateOverfitScore is the relative drop from in-sample to out-of-sample accuracy
func calculateOverfitScore(windows []Window) float64 {
	if len(windows) == 0 {
		return 0
	}
	trainAcc := 0.0
	testAcc := 0.0
	for _, w := range windows {
		trainAcc += w.Train.Accuracy
		testAcc += w.Test.Accuracy
	}
	if trainAcc == 0 {
		return 0
	}
	return (trainAcc - testAcc) / trainAcc
}

// JSON renders the result for offline analysis
func (r WalkForwardResult) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
