// Package logger provides training-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// TrainingLogger provides dedicated logging for model training runs.
type TrainingLogger struct {
	*logrus.Entry
}

// NewTrainingLogger creates a new training logger.
func NewTrainingLogger(baseLogger *logrus.Logger) *TrainingLogger {
	return &TrainingLogger{
		Entry: baseLogger.WithField("component", "training"),
	}
}

// LogTrainingRun logs a completed strength estimation run.
func (tl *TrainingLogger) LogTrainingRun(league string, teams, matches, iterations int, converged bool, durationMs float64) {
	tl.WithFields(logrus.Fields{
		"league":      league,
		"teams":       teams,
		"matches":     matches,
		"iterations":  iterations,
		"converged":   converged,
		"duration_ms": durationMs,
	}).Info("Training run completed")
}

// LogNonConvergence logs a run that hit the iteration cap or timeout.
func (tl *TrainingLogger) LogNonConvergence(league string, iterations int, timedOut bool, lastChange float64) {
	tl.WithFields(logrus.Fields{
		"league":      league,
		"iterations":  iterations,
		"timed_out":   timedOut,
		"last_change": lastChange,
	}).Warn("Training run did not converge")
}

// LogCalibration logs the fitted calibration temperature.
func (tl *TrainingLogger) LogCalibration(league string, temperature float64, holdoutMatches int) {
	tl.WithFields(logrus.Fields{
		"league":          league,
		"temperature":     temperature,
		"holdout_matches": holdoutMatches,
	}).Info("Calibration temperature fitted")
}

// LogPublish logs the promotion of a trained parameter set.
func (tl *TrainingLogger) LogPublish(league, version string, modelID string) {
	tl.WithFields(logrus.Fields{
		"league":   league,
		"version":  version,
		"model_id": modelID,
	}).Info("Model parameters published")
}

// PredictionLogger provides dedicated logging for fixture evaluations.
type PredictionLogger struct {
	*logrus.Entry
}

// NewPredictionLogger creates a new prediction logger.
func NewPredictionLogger(baseLogger *logrus.Logger) *PredictionLogger {
	return &PredictionLogger{
		Entry: baseLogger.WithField("component", "prediction"),
	}
}

// LogEvaluation logs a single fixture evaluation.
func (pl *PredictionLogger) LogEvaluation(league, home, away, modelVersion string, homeWin, draw, awayWin float64, signalsPresent int) {
	pl.WithFields(logrus.Fields{
		"league":          league,
		"home":            home,
		"away":            away,
		"model_version":   modelVersion,
		"p_home":          homeWin,
		"p_draw":          draw,
		"p_away":          awayWin,
		"signals_present": signalsPresent,
	}).Info("Fixture evaluated")
}

// LogSignalUnavailable logs a provider that returned no reading.
func (pl *PredictionLogger) LogSignalUnavailable(kind string, reason string) {
	pl.WithFields(logrus.Fields{
		"signal": kind,
		"reason": reason,
	}).Debug("Structural signal unavailable")
}
