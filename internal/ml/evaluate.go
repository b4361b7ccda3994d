package ml

import (
	"sort"

	"github.com/yourusername/f1-winner/internal/models"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// MetricROCAUC names the area under the ROC curve
const MetricROCAUC = "roc_auc"

// Evaluation holds metrics computed on one split
type Evaluation struct {
	Accuracy        float64
	TopPickAccuracy *float64
	ROCAUC          *float64
	Missing         []string
}

// Evaluate scores probabilities against labels. keys groups rows by event for
// top-pick accuracy: the highest-probability row of each event must be the winner.
func Evaluate(probs, labels []float64, keys []models.EventKey) Evaluation {
	var ev Evaluation
	if len(probs) == 0 {
		ev.Missing = []string{MetricROCAUC}
		return ev
	}

	correct := 0
	for i, p := range probs {
		predicted := 0.0
		if p >= 0.5 {
			predicted = 1
		}
		if predicted == labels[i] {
			correct++
		}
	}
	ev.Accuracy = float64(correct) / float64(len(probs))
	ev.TopPickAccuracy = topPickAccuracy(probs, labels, keys)

	if auc, ok := rocAUC(probs, labels); ok {
		ev.ROCAUC = &auc
	} else {
		ev.Missing = append(ev.Missing, MetricROCAUC)
	}
	return ev
}

// AsMap flattens the computed metrics for logging
func (e Evaluation) AsMap() map[string]float64 {
	out := map[string]float64{"accuracy": e.Accuracy}
	if e.TopPickAccuracy != nil {
		out["top_pick_accuracy"] = *e.TopPickAccuracy
	}
	if e.ROCAUC != nil {
		out[MetricROCAUC] = *e.ROCAUC
	}
	return out
}

// rocAUC is undefined unless both classes are present
func rocAUC(probs, labels []float64) (float64, bool) {
	type scored struct {
		p     float64
		label bool
	}
	pairs := make([]scored, len(probs))
	var pos, neg int
	for i, p := range probs {
		pairs[i] = scored{p: p, label: labels[i] == 1}
		if pairs[i].label {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, false
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].p < pairs[j].p })
	y := make([]float64, len(pairs))
	classes := make([]bool, len(pairs))
	for i, s := range pairs {
		y[i] = s.p
		classes[i] = s.label
	}
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), true
}

func topPickAccuracy(probs, labels []float64, keys []models.EventKey) *float64 {
	if len(keys) != len(probs) {
		return nil
	}
	type pick struct {
		best      float64
		bestWon   bool
		hasWinner bool
	}
	events := make(map[models.EventKey]*pick)
	for i, key := range keys {
		e, ok := events[key]
		if !ok {
			e = &pick{best: -1}
			events[key] = e
		}
		if labels[i] == 1 {
			e.hasWinner = true
		}
		if probs[i] > e.best {
			e.best = probs[i]
			e.bestWon = labels[i] == 1
		}
	}

	var judged, hits int
	for _, e := range events {
		if !e.hasWinner {
			continue
		}
		judged++
		if e.bestWon {
			hits++
		}
	}
	if judged == 0 {
		return nil
	}
	acc := float64(hits) / float64(judged)
	return &acc
}
