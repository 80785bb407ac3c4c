package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/yourusername/match-predictor/internal/models"
)

var estimatorAsOf = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

// fourTeamSeason is a full double round-robin between four teams of clearly
// distinct strength (alpha strongest, delta weakest).
func fourTeamSeason() []models.MatchRecord {
	type res struct {
		home, away           string
		homeGoals, awayGoals int
	}
	results := []res{
		{"alpha", "beta", 3, 0},
		{"alpha", "gamma", 2, 1},
		{"alpha", "delta", 4, 0},
		{"beta", "gamma", 1, 1},
		{"beta", "delta", 2, 1},
		{"gamma", "delta", 1, 0},
		{"beta", "alpha", 1, 2},
		{"gamma", "alpha", 0, 2},
		{"delta", "alpha", 0, 3},
		{"gamma", "beta", 0, 1},
		{"delta", "beta", 1, 1},
		{"delta", "gamma", 0, 1},
	}
	matches := make([]models.MatchRecord, 0, len(results))
	for _, r := range results {
		matches = append(matches, models.MatchRecord{
			HomeTeam:  r.home,
			AwayTeam:  r.away,
			League:    "test-league",
			Date:      estimatorAsOf,
			HomeGoals: r.homeGoals,
			AwayGoals: r.awayGoals,
		})
	}
	return matches
}

func TestFitConvergesAndNormalizes(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig(), nil)
	result, err := est.Fit(context.Background(), "test-league", fourTeamSeason(), nil, estimatorAsOf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Converged {
		t.Fatalf("expected convergence after %d iterations", result.Iterations)
	}

	attackMean, defenseMean := 0.0, 0.0
	for _, r := range result.Ratings {
		attackMean += r.Attack
		defenseMean += r.Defense
	}
	attackMean /= float64(len(result.Ratings))
	defenseMean /= float64(len(result.Ratings))

	if math.Abs(attackMean-1.0) > 1e-6 {
		t.Errorf("mean attack = %.9f, want 1.0", attackMean)
	}
	if math.Abs(defenseMean-1.0) > 1e-6 {
		t.Errorf("mean defense = %.9f, want 1.0", defenseMean)
	}
}

func TestFitOrdersTeamsByStrength(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig(), nil)
	result, err := est.Fit(context.Background(), "test-league", fourTeamSeason(), nil, estimatorAsOf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Ratings["alpha"].Attack <= result.Ratings["delta"].Attack {
		t.Errorf("expected alpha attack (%.3f) above delta attack (%.3f)",
			result.Ratings["alpha"].Attack, result.Ratings["delta"].Attack)
	}
	if result.Ratings["alpha"].Attack <= result.Ratings["gamma"].Attack {
		t.Errorf("expected alpha attack (%.3f) above gamma attack (%.3f)",
			result.Ratings["alpha"].Attack, result.Ratings["gamma"].Attack)
	}
}

func TestFitIterationCapStillNormalized(t *testing.T) {
	cfg := DefaultEstimatorConfig()
	cfg.MaxIterations = 2
	est := NewEstimator(cfg, nil)

	result, err := est.Fit(context.Background(), "test-league", fourTeamSeason(), nil, estimatorAsOf)
	if err != nil {
		t.Fatalf("expected usable result despite iteration cap, got %v", err)
	}
	if result.Converged {
		t.Fatalf("expected non-convergence at cap 2")
	}
	if result.Iterations != 2 {
		t.Fatalf("expected 2 iterations, got %d", result.Iterations)
	}

	attackMean := 0.0
	for _, r := range result.Ratings {
		attackMean += r.Attack
	}
	attackMean /= float64(len(result.Ratings))
	if math.Abs(attackMean-1.0) > 1e-6 {
		t.Errorf("capped run left ratings unnormalized: mean attack %.9f", attackMean)
	}
}

func TestFitInsufficientData(t *testing.T) {
	matches := []models.MatchRecord{
		{HomeTeam: "a", AwayTeam: "b", League: "tiny", Date: estimatorAsOf, HomeGoals: 1, AwayGoals: 0},
	}
	est := NewEstimator(DefaultEstimatorConfig(), nil)
	_, err := est.Fit(context.Background(), "tiny", matches, nil, estimatorAsOf)

	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.League != "tiny" {
		t.Errorf("error scoped to league %q, want tiny", insufficient.League)
	}
}

func TestFitTeamWithoutHistoryGetsNeutralRating(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig(), nil)
	universe := []string{"alpha", "beta", "gamma", "delta", "newcomer"}
	result, err := est.Fit(context.Background(), "test-league", fourTeamSeason(), universe, estimatorAsOf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	rating, ok := result.Ratings["newcomer"]
	if !ok {
		t.Fatalf("newcomer missing from ratings")
	}
	if !rating.IsNeutral() {
		t.Errorf("expected neutral rating for newcomer, got attack=%.3f defense=%.3f", rating.Attack, rating.Defense)
	}
}

func TestFitUniverseSupersetKeepsUnitMean(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig(), nil)
	universe := []string{"alpha", "beta", "gamma", "delta", "ghost-one", "ghost-two"}
	result, err := est.Fit(context.Background(), "test-league", fourTeamSeason(), universe, estimatorAsOf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	attackMean, defenseMean := 0.0, 0.0
	for _, r := range result.Ratings {
		attackMean += r.Attack
		defenseMean += r.Defense
	}
	attackMean /= float64(len(result.Ratings))
	defenseMean /= float64(len(result.Ratings))

	if math.Abs(attackMean-1.0) > 1e-6 {
		t.Errorf("mean attack with idle universe teams = %.9f, want 1.0", attackMean)
	}
	if math.Abs(defenseMean-1.0) > 1e-6 {
		t.Errorf("mean defense with idle universe teams = %.9f, want 1.0", defenseMean)
	}
	for _, ghost := range []string{"ghost-one", "ghost-two"} {
		if r := result.Ratings[ghost]; !r.IsNeutral() {
			t.Errorf("%s drifted off neutral: attack=%.9f defense=%.9f", ghost, r.Attack, r.Defense)
		}
	}
}

func TestFitTimeoutReturnsBestIterate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	est := NewEstimator(DefaultEstimatorConfig(), nil)
	result, err := est.Fit(ctx, "test-league", fourTeamSeason(), nil, estimatorAsOf)
	if err != nil {
		t.Fatalf("timeout must not fail the run, got %v", err)
	}
	if !result.TimedOut {
		t.Fatalf("expected timed-out flag")
	}
	if result.Converged {
		t.Fatalf("timed-out run cannot be converged")
	}
	if len(result.Ratings) == 0 {
		t.Fatalf("expected usable ratings from best iterate")
	}
}

func TestFittedRhoWithinBounds(t *testing.T) {
	cfg := DefaultEstimatorConfig()
	est := NewEstimator(cfg, nil)
	result, err := est.Fit(context.Background(), "test-league", fourTeamSeason(), nil, estimatorAsOf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Rho < cfg.RhoMin || result.Rho > cfg.RhoMax {
		t.Errorf("rho %.4f outside [%g, %g]", result.Rho, cfg.RhoMin, cfg.RhoMax)
	}
	if err := ValidateRho(cfg, result.Rho); err != nil {
		t.Errorf("fitted rho failed validation: %v", err)
	}
}

func TestMatchWeightDecay(t *testing.T) {
	cfg := DefaultEstimatorConfig()
	cfg.HalfLifeDays = 100
	est := NewEstimator(cfg, nil)

	fresh := models.MatchRecord{Date: estimatorAsOf}
	aged := models.MatchRecord{Date: estimatorAsOf.AddDate(0, 0, -100)}

	wFresh := est.matchWeight(fresh, estimatorAsOf)
	wAged := est.matchWeight(aged, estimatorAsOf)

	if math.Abs(wFresh-1.0) > 1e-9 {
		t.Errorf("fresh match weight = %g, want 1", wFresh)
	}
	if math.Abs(wAged-0.5) > 1e-9 {
		t.Errorf("weight at one half-life = %g, want 0.5", wAged)
	}
}

func TestMatchWeightCutoffExcludes(t *testing.T) {
	cfg := DefaultEstimatorConfig()
	cfg.MaxAgeDays = 365
	est := NewEstimator(cfg, nil)

	ancient := models.MatchRecord{Date: estimatorAsOf.AddDate(-3, 0, 0)}
	if w := est.matchWeight(ancient, estimatorAsOf); w != 0 {
		t.Errorf("match beyond cutoff got weight %g, want 0", w)
	}
}
