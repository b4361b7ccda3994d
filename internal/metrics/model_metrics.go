package metrics

import "github.com/prometheus/client_golang/prometheus"

// Model gauge vectors
var (
	ModelAccuracy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_accuracy",
		Help:      "Evaluation accuracy of the current model",
	}, []string{"model"})
	ModelROCAUC = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_roc_auc",
		Help:      "ROC AUC of the current model when both classes were evaluated",
	}, []string{"model"})
	ChampionshipProbability = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "championship_probability",
		Help:      "Latest simulated championship probability per driver",
	}, []string{"season", "driver_id"})
)

// Model counter vectors
var (
	TrainingRefusalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "training_refusals_total",
		Help:      "Training runs refused by reason",
	}, []string{"reason"})
)

// Forecast histograms
var (
	ForecastDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "forecast_duration_seconds",
		Help:      "Duration of championship simulations in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})
)

// RecordModelTrained updates the evaluation gauges for a model.
// rocAUC is nil when the evaluated split had a single class.
func RecordModelTrained(model string, accuracy float64, rocAUC *float64) {
	ModelAccuracy.WithLabelValues(model).Set(accuracy)
	if rocAUC != nil {
		ModelROCAUC.WithLabelValues(model).Set(*rocAUC)
	}
}

// RecordTrainingRefusal records a refused training run.
func RecordTrainingRefusal(reason string) {
	TrainingRefusalsTotal.WithLabelValues(reason).Inc()
}

// UpdateChampionshipProbability sets the latest simulated probability for a driver.
func UpdateChampionshipProbability(season, driverID string, p float64) {
	ChampionshipProbability.WithLabelValues(season, driverID).Set(p)
}

// RecordForecastDuration records how long a simulation took.
func RecordForecastDuration(durationSeconds float64) {
	ForecastDuration.Observe(durationSeconds)
}
