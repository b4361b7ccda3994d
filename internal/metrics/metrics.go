// Package metrics provides the centralized Prometheus metrics registry for the pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "f1_winner"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Total number of pipeline runs by outcome",
	}, []string{"outcome"})
	StageOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_outcomes_total",
		Help:      "Terminal states reached by pipeline stages",
	}, []string{"stage", "state"})
	ResultsWrittenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_results_written_total",
		Help:      "Session results inserted or changed by ingestion",
	}, []string{"session_kind"})
	RecoveredErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recovered_errors_total",
		Help:      "Data source errors the run continued past, by class",
	}, []string{"class"})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of data source circuit breaker trips",
	})
)

// Gauge metrics
var (
	FeatureRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feature_rows",
		Help:      "Rows written by the last feature rebuild",
	})
	TrainingRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "training_rows",
		Help:      "Labelled rows written by the last training set rebuild",
	})
	LastSuccessfulRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_successful_run_timestamp_seconds",
		Help:      "Unix time of the last run that finished without a failed stage",
	})
)

// Histogram metrics
var (
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"stage"})
	SourceRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "source_request_duration_seconds",
		Help:      "Latency of data source requests in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(PipelineRunsTotal)
		registry.MustRegister(StageOutcomesTotal)
		registry.MustRegister(ResultsWrittenTotal)
		registry.MustRegister(RecoveredErrorsTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)

		registry.MustRegister(FeatureRows)
		registry.MustRegister(TrainingRows)
		registry.MustRegister(LastSuccessfulRun)

		registry.MustRegister(StageDuration)
		registry.MustRegister(SourceRequestDuration)

		// Model and forecast metrics
		registry.MustRegister(ModelAccuracy)
		registry.MustRegister(ModelROCAUC)
		registry.MustRegister(TrainingRefusalsTotal)
		registry.MustRegister(ChampionshipProbability)
		registry.MustRegister(ForecastDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordRun records the outcome of a whole pipeline run.
func RecordRun(outcome string, finishedAtUnix float64) {
	PipelineRunsTotal.WithLabelValues(outcome).Inc()
	if outcome == "succeeded" {
		LastSuccessfulRun.Set(finishedAtUnix)
	}
}

// RecordStage records the terminal state and duration of a stage.
func RecordStage(stage, state string, durationSeconds float64) {
	StageOutcomesTotal.WithLabelValues(stage, state).Inc()
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordResultsWritten adds to the number of session results written for a kind.
func RecordResultsWritten(kind string, n int) {
	ResultsWrittenTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordRecoveredError records a data source error the run continued past.
func RecordRecoveredError(class string) {
	RecoveredErrorsTotal.WithLabelValues(class).Inc()
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// RecordSourceRequest records data source request latency.
func RecordSourceRequest(durationSeconds float64) {
	SourceRequestDuration.Observe(durationSeconds)
}

// UpdateFeatureRows sets the feature row gauge.
func UpdateFeatureRows(n int) {
	FeatureRows.Set(float64(n))
}

// UpdateTrainingRows sets the training row gauge.
func UpdateTrainingRows(n int) {
	TrainingRows.Set(float64(n))
}
