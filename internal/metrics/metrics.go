// Package metrics provides the centralized Prometheus metrics registry for
// the match predictor.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	TrainingRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_predictor",
		Name:      "training_runs_total",
		Help:      "Total number of training runs by league",
	}, []string{"league"})
	TrainingNonConvergedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_predictor",
		Name:      "training_non_converged_total",
		Help:      "Training runs that hit the iteration cap or timeout",
	}, []string{"league"})
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_predictor",
		Name:      "evaluations_total",
		Help:      "Total number of fixture evaluations by league",
	}, []string{"league"})
	SignalsUnavailableTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_predictor",
		Name:      "signals_unavailable_total",
		Help:      "Evaluations missing a structural signal, by signal kind",
	}, []string{"signal"})
	DrawClampsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "match_predictor",
		Name:      "draw_clamps_total",
		Help:      "Blend adjustments clamped at the maximum draw delta",
	})
	PublishesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_predictor",
		Name:      "publishes_total",
		Help:      "Model parameter sets promoted to active, by league",
	}, []string{"league"})
)

// Gauge metrics
var (
	ActiveModelInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "match_predictor",
		Name:      "active_model_info",
		Help:      "Set to 1 for the currently active model version per league",
	}, []string{"league", "version"})
	MeanPredictionEntropy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "match_predictor",
		Name:      "mean_prediction_entropy",
		Help:      "Mean outcome entropy of the latest training diagnostics per league",
	}, []string{"league"})
	CalibrationTemperature = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "match_predictor",
		Name:      "calibration_temperature",
		Help:      "Fitted calibration temperature of the active model per league",
	}, []string{"league"})
	SignalCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "match_predictor",
		Name:      "signal_cache_hit_ratio",
		Help:      "Hit ratio of the structural signal cache",
	})
)

// Histogram metrics
var (
	TrainingIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "match_predictor",
		Name:      "training_iterations",
		Help:      "Iterations needed for strength estimation to converge",
		Buckets:   []float64{5, 10, 20, 40, 80, 120, 160, 200},
	})
	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "match_predictor",
		Name:      "training_duration_seconds",
		Help:      "Wall-clock duration of training runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	EvaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "match_predictor",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of fixture evaluations in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(TrainingRunsTotal)
		registry.MustRegister(TrainingNonConvergedTotal)
		registry.MustRegister(EvaluationsTotal)
		registry.MustRegister(SignalsUnavailableTotal)
		registry.MustRegister(DrawClampsTotal)
		registry.MustRegister(PublishesTotal)

		registry.MustRegister(ActiveModelInfo)
		registry.MustRegister(MeanPredictionEntropy)
		registry.MustRegister(CalibrationTemperature)
		registry.MustRegister(SignalCacheHitRatio)

		registry.MustRegister(TrainingIterations)
		registry.MustRegister(TrainingDuration)
		registry.MustRegister(EvaluationDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordTrainingRun records a completed training run.
func RecordTrainingRun(league string, iterations int, durationSeconds float64, converged bool) {
	TrainingRunsTotal.WithLabelValues(league).Inc()
	TrainingIterations.Observe(float64(iterations))
	TrainingDuration.Observe(durationSeconds)
	if !converged {
		TrainingNonConvergedTotal.WithLabelValues(league).Inc()
	}
}

// RecordEvaluation records a fixture evaluation.
func RecordEvaluation(league string, durationSeconds float64) {
	EvaluationsTotal.WithLabelValues(league).Inc()
	EvaluationDuration.Observe(durationSeconds)
}

// RecordSignalUnavailable records a structural signal that no provider could
// serve.
func RecordSignalUnavailable(signal string) {
	SignalsUnavailableTotal.WithLabelValues(signal).Inc()
}

// RecordDrawClamp records a blend adjustment clipped at the configured bound.
func RecordDrawClamp() {
	DrawClampsTotal.Inc()
}

// RecordPublish records a model promotion and points the active-model info
// gauge at the new version.
func RecordPublish(league, version string) {
	PublishesTotal.WithLabelValues(league).Inc()
	ActiveModelInfo.DeletePartialMatch(prometheus.Labels{"league": league})
	ActiveModelInfo.WithLabelValues(league, version).Set(1)
}

// UpdateTrainingDiagnostics exports per-league diagnostics gauges.
func UpdateTrainingDiagnostics(league string, meanEntropy, temperature float64) {
	MeanPredictionEntropy.WithLabelValues(league).Set(meanEntropy)
	CalibrationTemperature.WithLabelValues(league).Set(temperature)
}

// UpdateSignalCacheHitRatio exports the signal cache hit ratio.
func UpdateSignalCacheHitRatio(ratio float64) {
	SignalCacheHitRatio.Set(ratio)
}
