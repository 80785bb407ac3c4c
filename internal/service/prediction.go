// Package service orchestrates training and fixture evaluation.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/match-predictor/internal/config"
	"github.com/yourusername/match-predictor/internal/engine"
	"github.com/yourusername/match-predictor/internal/logger"
	"github.com/yourusername/match-predictor/internal/metrics"
	"github.com/yourusername/match-predictor/internal/models"
	"github.com/yourusername/match-predictor/internal/registry"
	"github.com/yourusername/match-predictor/internal/repository"
	"github.com/yourusername/match-predictor/internal/signals"
)

// historyHorizonYears bounds the history query when no hard age cutoff is
// configured; the decay weights make anything older irrelevant anyway.
const historyHorizonYears = 10

// TrainResult bundles a fitted parameter set with its diagnostics.
type TrainResult struct {
	Params      *models.ModelParameters
	Diagnostics *models.TrainingDiagnostics
}

// Prediction is the full evaluation output for one fixture.
type Prediction struct {
	Fixture       *models.Fixture
	ModelVersion  string
	Probabilities models.OutcomeProbability
	ExpectedHome  float64
	ExpectedAway  float64
	Over25        float64
	Under25       float64
	BothToScore   float64
	SignalsUsed   []models.StructuralSignal
}

// PredictionService runs training and evaluation against the model registry.
type PredictionService struct {
	estimatorCfg    engine.EstimatorConfig
	calibratorCfg   engine.CalibratorConfig
	blender         *engine.Blender
	maxGoals        int
	holdoutFraction float64
	trainTimeout    time.Duration

	matches  repository.MatchRepository
	registry registry.Registry
	chain    *signals.Chain

	log           *logrus.Logger
	trainingLog   *logger.TrainingLogger
	predictionLog *logger.PredictionLogger
}

// NewPredictionService wires the engine components from configuration. The
// signal chain may be nil, in which case evaluations run unblended.
func NewPredictionService(
	cfg *config.Config,
	matches repository.MatchRepository,
	reg registry.Registry,
	chain *signals.Chain,
	log *logrus.Logger,
) *PredictionService {
	return &PredictionService{
		estimatorCfg:    cfg.Training.EstimatorConfig(),
		calibratorCfg:   engine.DefaultCalibratorConfig(),
		blender:         engine.NewBlender(cfg.Blending.BlenderConfig()),
		maxGoals:        cfg.Training.MaxGoals,
		holdoutFraction: cfg.Training.HoldoutFraction,
		trainTimeout:    cfg.Training.TrainingTimeout(),
		matches:         matches,
		registry:        reg,
		chain:           chain,
		log:             log,
		trainingLog:     logger.NewTrainingLogger(log),
		predictionLog:   logger.NewPredictionLogger(log),
	}
}

// Train fits a parameter set for one league from stored history. The result
// is not yet published; call Publish to promote it. Insufficient data in one
// league is reported as a typed error scoped to that league.
func (s *PredictionService) Train(ctx context.Context, league string, asOf time.Time) (*TrainResult, error) {
	if s.trainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.trainTimeout)
		defer cancel()
	}

	start := asOf.AddDate(-historyHorizonYears, 0, 0)
	if s.estimatorCfg.MaxAgeDays > 0 {
		start = asOf.Add(-time.Duration(s.estimatorCfg.MaxAgeDays*24) * time.Hour)
	}

	records, err := s.matches.GetByLeague(ctx, league, start, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for league %s: %w", league, err)
	}

	history := make([]models.MatchRecord, len(records))
	for i, record := range records {
		history[i] = *record
	}

	// The newest slice of the season is held out for calibration so the
	// temperature is never fitted on training matches.
	trainSet, holdout := splitHoldout(history, s.holdoutFraction)

	began := time.Now()
	estimator := engine.NewEstimator(s.estimatorCfg, s.log)
	result, err := estimator.Fit(ctx, league, trainSet, nil, asOf)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(began)

	params := &models.ModelParameters{
		ModelType:     league,
		Version:       asOf.UTC().Format("20060102-150405"),
		TeamStrengths: result.Ratings,
		HomeAdvantage: result.HomeAdvantage,
		Rho:           result.Rho,
		Temperature:   1.0,
		State:         models.StateTraining,
		TrainedAt:     asOf.UTC(),
	}

	predictions, observed := s.holdoutPredictions(params, holdout)
	temperature, err := engine.FitTemperature(s.calibratorCfg, predictions, observed)
	if err != nil {
		return nil, fmt.Errorf("calibration failed for league %s: %w", league, err)
	}
	params.Temperature = temperature

	calibrated := make([]models.OutcomeProbability, len(predictions))
	for i, p := range predictions {
		calibrated[i] = engine.ApplyTemperature(p, temperature)
	}

	diagnostics := &models.TrainingDiagnostics{
		Iterations:    result.Iterations,
		Converged:     result.Converged,
		TimedOut:      result.TimedOut,
		Rho:           result.Rho,
		Temperature:   temperature,
		HomeAdvantage: result.HomeAdvantage,
		Teams:         len(result.Ratings),
		Matches:       len(trainSet),
		MeanEntropy:   engine.MeanEntropy(calibrated),
	}

	s.trainingLog.LogTrainingRun(league, diagnostics.Teams, diagnostics.Matches,
		diagnostics.Iterations, diagnostics.Converged, float64(elapsed.Milliseconds()))
	if !diagnostics.Converged {
		s.trainingLog.LogNonConvergence(league, diagnostics.Iterations, diagnostics.TimedOut, 0)
	}
	s.trainingLog.LogCalibration(league, temperature, len(holdout))

	metrics.RecordTrainingRun(league, diagnostics.Iterations, elapsed.Seconds(), diagnostics.Converged)
	metrics.UpdateTrainingDiagnostics(league, diagnostics.MeanEntropy, temperature)

	return &TrainResult{Params: params, Diagnostics: diagnostics}, nil
}

// Publish validates a trained parameter set and promotes it to active.
// Invalid rho or temperature blocks the promotion.
func (s *PredictionService) Publish(ctx context.Context, params *models.ModelParameters) (uuid.UUID, error) {
	if err := engine.ValidateRho(s.estimatorCfg, params.Rho); err != nil {
		return uuid.Nil, fmt.Errorf("refusing to publish: %w", err)
	}
	if err := engine.ValidateTemperature(s.calibratorCfg, params.Temperature); err != nil {
		return uuid.Nil, fmt.Errorf("refusing to publish: %w", err)
	}

	id, err := s.registry.Publish(ctx, params)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to publish model for %s: %w", params.ModelType, err)
	}

	s.trainingLog.LogPublish(params.ModelType, params.Version, id.String())
	metrics.RecordPublish(params.ModelType, params.Version)
	return id, nil
}

// Leagues lists every league with stored match history.
func (s *PredictionService) Leagues(ctx context.Context) ([]string, error) {
	return s.matches.Leagues(ctx)
}

// TrainAll trains every league concurrently. Failures are collected per
// league so one sparse league cannot block the others.
func (s *PredictionService) TrainAll(ctx context.Context, leagues []string, asOf time.Time) (map[string]*TrainResult, map[string]error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]*TrainResult)
		errs    = make(map[string]error)
	)

	for _, league := range leagues {
		wg.Add(1)
		go func(league string) {
			defer wg.Done()
			result, err := s.Train(ctx, league, asOf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[league] = err
				return
			}
			results[league] = result
		}(league)
	}

	wg.Wait()
	return results, errs
}

// EvaluateOptions controls model selection for an evaluation.
type EvaluateOptions struct {
	// ModelVersion pins a specific version; empty means the active model.
	ModelVersion string
}

// Evaluate produces calibrated outcome probabilities for a fixture. It fails
// loudly when no model is available; it never trains implicitly.
func (s *PredictionService) Evaluate(ctx context.Context, fixture *models.Fixture, opts EvaluateOptions) (*Prediction, error) {
	began := time.Now()

	params, err := s.lookupParams(ctx, fixture.League, opts.ModelVersion)
	if err != nil {
		return nil, err
	}

	matrix := engine.NewScoreMatrix(
		params.RatingFor(fixture.HomeTeam),
		params.RatingFor(fixture.AwayTeam),
		params.HomeAdvantage,
		params.Rho,
		s.maxGoals,
	)
	raw := matrix.Outcomes()

	var collected []models.StructuralSignal
	if s.chain != nil {
		collected = s.chain.Collect(ctx, fixture)
		s.recordAbsentSignals(collected)
	}

	blended, clamped := s.blender.Blend(raw, collected)
	if clamped {
		metrics.RecordDrawClamp()
	}
	final := engine.ApplyTemperature(blended, params.Temperature)

	expectedHome, expectedAway := matrix.ExpectedGoals()
	over, under := matrix.OverUnder(2.5)

	prediction := &Prediction{
		Fixture:       fixture,
		ModelVersion:  params.Version,
		Probabilities: final,
		ExpectedHome:  expectedHome,
		ExpectedAway:  expectedAway,
		Over25:        over,
		Under25:       under,
		BothToScore:   matrix.BothTeamsToScore(),
		SignalsUsed:   collected,
	}

	s.predictionLog.LogEvaluation(fixture.League, fixture.HomeTeam, fixture.AwayTeam,
		params.Version, final.HomeWin, final.Draw, final.AwayWin, len(collected))
	metrics.RecordEvaluation(fixture.League, time.Since(began).Seconds())

	return prediction, nil
}

func (s *PredictionService) lookupParams(ctx context.Context, league, version string) (*models.ModelParameters, error) {
	if version != "" {
		params, err := s.registry.GetVersion(ctx, league, version)
		if err != nil {
			return nil, fmt.Errorf("model version %s for league %s: %w", version, league, err)
		}
		return params, nil
	}

	params, err := s.registry.GetActive(ctx, league)
	if err != nil {
		return nil, fmt.Errorf("league %s: %w", league, err)
	}
	return params, nil
}

// holdoutPredictions builds raw matrix outcomes for the held-out matches
// using the freshly fitted ratings. Signals are not replayed historically, so
// calibration sees the unblended distribution.
func (s *PredictionService) holdoutPredictions(params *models.ModelParameters, holdout []models.MatchRecord) ([]models.OutcomeProbability, []engine.Outcome) {
	predictions := make([]models.OutcomeProbability, 0, len(holdout))
	observed := make([]engine.Outcome, 0, len(holdout))

	for _, match := range holdout {
		matrix := engine.NewScoreMatrix(
			params.RatingFor(match.HomeTeam),
			params.RatingFor(match.AwayTeam),
			params.HomeAdvantage,
			params.Rho,
			s.maxGoals,
		)
		predictions = append(predictions, matrix.Outcomes())
		observed = append(observed, engine.OutcomeOf(match.HomeGoals, match.AwayGoals))
	}

	return predictions, observed
}

func (s *PredictionService) recordAbsentSignals(collected []models.StructuralSignal) {
	present := make(map[models.SignalKind]bool, len(collected))
	for _, sig := range collected {
		present[sig.Kind] = true
	}
	for _, kind := range models.AllSignalKinds {
		if !present[kind] {
			s.predictionLog.LogSignalUnavailable(string(kind), "no provider reading")
			metrics.RecordSignalUnavailable(string(kind))
		}
	}
}

// splitHoldout cuts the newest fraction of a chronologically ordered history
// for calibration. The training set always keeps at least one match.
func splitHoldout(history []models.MatchRecord, fraction float64) (trainSet, holdout []models.MatchRecord) {
	if fraction <= 0 || len(history) < 2 {
		return history, nil
	}

	cut := len(history) - int(float64(len(history))*fraction)
	if cut < 1 {
		cut = 1
	}
	if cut >= len(history) {
		return history, nil
	}
	return history[:cut], history[cut:]
}
