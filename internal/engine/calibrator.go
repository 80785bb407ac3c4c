package engine

import (
	"math"

	"github.com/yourusername/match-predictor/internal/models"
)

// Outcome indexes into an OutcomeProbability triple for calibration.
type Outcome int

const (
	OutcomeHomeWin Outcome = iota
	OutcomeDraw
	OutcomeAwayWin
)

// OutcomeOf returns the observed outcome of a completed match.
func OutcomeOf(homeGoals, awayGoals int) Outcome {
	switch {
	case homeGoals > awayGoals:
		return OutcomeHomeWin
	case homeGoals == awayGoals:
		return OutcomeDraw
	default:
		return OutcomeAwayWin
	}
}

// CalibratorConfig bounds the temperature search.
type CalibratorConfig struct {
	TemperatureMin float64
	TemperatureMax float64
}

// DefaultCalibratorConfig returns the default search bounds.
func DefaultCalibratorConfig() CalibratorConfig {
	return CalibratorConfig{TemperatureMin: 0.25, TemperatureMax: 4.0}
}

// ApplyTemperature rescales a probability triple in log space by exponent
// 1/temperature and renormalizes. Temperature 1.0 is an exact no-op;
// temperature > 1 softens the distribution, < 1 sharpens it.
func ApplyTemperature(p models.OutcomeProbability, temperature float64) models.OutcomeProbability {
	if temperature == 1.0 {
		return p
	}
	inv := 1.0 / temperature
	scaled := models.OutcomeProbability{
		HomeWin: math.Pow(p.HomeWin, inv),
		Draw:    math.Pow(p.Draw, inv),
		AwayWin: math.Pow(p.AwayWin, inv),
	}
	return scaled.Normalized()
}

// FitTemperature finds the temperature minimizing log-loss of the given
// predictions against observed outcomes via bounded golden-section search.
// This runs only at training time; evaluation merely applies the stored
// scalar. With no held-out samples the neutral temperature 1.0 is returned.
func FitTemperature(cfg CalibratorConfig, predictions []models.OutcomeProbability, observed []Outcome) (float64, error) {
	if len(predictions) != len(observed) {
		return 0, &models.InvalidParameterError{Name: "calibration_samples", Value: float64(len(observed)), Min: float64(len(predictions)), Max: float64(len(predictions))}
	}
	if len(predictions) == 0 {
		return 1.0, nil
	}

	loss := func(t float64) float64 {
		total := 0.0
		for i, p := range predictions {
			calibrated := ApplyTemperature(p, t)
			q := pick(calibrated, observed[i])
			if q < probFloor {
				q = probFloor
			}
			total -= math.Log(q)
		}
		return total
	}

	// golden-section minimization, reusing the maximizer on the negated loss
	temperature := goldenSectionMax(func(t float64) float64 { return -loss(t) }, cfg.TemperatureMin, cfg.TemperatureMax, 1e-5)

	if err := ValidateTemperature(cfg, temperature); err != nil {
		return 0, err
	}
	return temperature, nil
}

// ValidateTemperature rejects temperatures outside (0, ∞) or the configured
// search bounds. Publishing a parameter set with an invalid temperature is
// blocked.
func ValidateTemperature(cfg CalibratorConfig, temperature float64) error {
	if temperature <= 0 || math.IsNaN(temperature) || math.IsInf(temperature, 0) ||
		temperature < cfg.TemperatureMin || temperature > cfg.TemperatureMax {
		return &models.InvalidParameterError{
			Name:  "temperature",
			Value: temperature,
			Min:   cfg.TemperatureMin,
			Max:   cfg.TemperatureMax,
		}
	}
	return nil
}

// ValidateRho rejects correlation values outside the configured bounds.
func ValidateRho(estCfg EstimatorConfig, rho float64) error {
	if math.IsNaN(rho) || rho < estCfg.RhoMin || rho > estCfg.RhoMax {
		return &models.InvalidParameterError{
			Name:  "rho",
			Value: rho,
			Min:   estCfg.RhoMin,
			Max:   estCfg.RhoMax,
		}
	}
	return nil
}

// MeanEntropy summarizes how decisive a set of predictions is, for
// calibration drift monitoring.
func MeanEntropy(predictions []models.OutcomeProbability) float64 {
	if len(predictions) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range predictions {
		total += p.Entropy()
	}
	return total / float64(len(predictions))
}

func pick(p models.OutcomeProbability, o Outcome) float64 {
	switch o {
	case OutcomeHomeWin:
		return p.HomeWin
	case OutcomeDraw:
		return p.Draw
	default:
		return p.AwayWin
	}
}
