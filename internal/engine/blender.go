package engine

import (
	"math"

	"github.com/yourusername/match-predictor/internal/models"
)

// probFloor keeps every outcome strictly positive after blending.
const probFloor = 1e-6

// BlenderConfig holds the per-signal weights and scales for the structural
// signal blender. All numeric values are tunable defaults, not fixed
// requirements.
type BlenderConfig struct {
	// MaxDrawDelta bounds the absolute draw adjustment.
	MaxDrawDelta float64
	// ReferenceDrawRate is the global baseline draw rate deviations are
	// measured against.
	ReferenceDrawRate float64
	// H2HShrinkCount is the pseudo-count pulling a low-sample head-to-head
	// draw rate toward the league prior.
	H2HShrinkCount float64
	// EloGapScale is the rating-point gap at which the gap effect saturates.
	EloGapScale float64
	// RestDiffScale is the rest-day asymmetry at which the effect saturates.
	RestDiffScale float64
	// InjuryScale is the net injury differential at which the effect
	// saturates.
	InjuryScale float64
	// InjurySideShiftMax bounds the home/away mass shift from injuries.
	InjurySideShiftMax float64
	// Weights are the relative per-signal weights in the combination.
	Weights map[models.SignalKind]float64
}

// DefaultBlenderConfig returns the tunable defaults.
func DefaultBlenderConfig() BlenderConfig {
	return BlenderConfig{
		MaxDrawDelta:       0.06,
		ReferenceDrawRate:  0.26,
		H2HShrinkCount:     10,
		EloGapScale:        400,
		RestDiffScale:      5,
		InjuryScale:        5,
		InjurySideShiftMax: 0.04,
		Weights: map[models.SignalKind]float64{
			models.SignalLeagueDrawRate:  1.0,
			models.SignalH2HDrawRate:     1.0,
			models.SignalEloGap:          1.0,
			models.SignalRestDiff:        0.5,
			models.SignalWeatherSeverity: 0.5,
			models.SignalInjurySeverity:  0.5,
		},
	}
}

// Blender adjusts the raw outcome triple using whichever structural signals
// are available. Absent signals are excluded from the combination and the
// weight vector is renormalized over the signals actually present, so a
// partially informed blend is never biased relative to a signal-free one.
type Blender struct {
	cfg BlenderConfig
}

// NewBlender creates a blender with the given configuration.
func NewBlender(cfg BlenderConfig) *Blender {
	return &Blender{cfg: cfg}
}

// Blend applies the bounded draw adjustment and the injury side shift. With
// no signals present the input is returned unchanged. The second return value
// reports whether the draw adjustment sat at the configured bound or was cut
// by the probability floor.
func (b *Blender) Blend(raw models.OutcomeProbability, signals []models.StructuralSignal) (models.OutcomeProbability, bool) {
	if len(signals) == 0 {
		return raw, false
	}

	present := make(map[models.SignalKind]models.StructuralSignal, len(signals))
	for _, s := range signals {
		if _, seen := present[s.Kind]; !seen {
			present[s.Kind] = s
		}
	}

	// The league draw rate doubles as the prior for shrinking sparse
	// head-to-head samples.
	leaguePrior := b.cfg.ReferenceDrawRate
	if s, ok := present[models.SignalLeagueDrawRate]; ok {
		leaguePrior = s.Value
	}

	weightSum := 0.0
	scoreSum := 0.0
	for kind, s := range present {
		w := b.cfg.Weights[kind]
		if w <= 0 {
			continue
		}
		score, ok := b.drawScore(kind, s, leaguePrior)
		if !ok {
			continue
		}
		weightSum += w
		scoreSum += w * score
	}

	out := raw
	clamped := false
	if weightSum > 0 {
		requested := b.cfg.MaxDrawDelta * (scoreSum / weightSum)
		delta := math.Max(-b.cfg.MaxDrawDelta, math.Min(b.cfg.MaxDrawDelta, requested))

		target := raw.Draw + delta
		draw := math.Max(probFloor, math.Min(1-2*probFloor, target))
		clamped = math.Abs(delta) >= b.cfg.MaxDrawDelta || draw != target

		remainder := 1 - draw
		sides := raw.HomeWin + raw.AwayWin
		if sides > 0 {
			// Redistribute the complement proportionally to the original
			// home/away ratio.
			out = models.OutcomeProbability{
				HomeWin: remainder * raw.HomeWin / sides,
				Draw:    draw,
				AwayWin: remainder * raw.AwayWin / sides,
			}
		}
	}

	if s, ok := present[models.SignalInjurySeverity]; ok {
		out = b.applyInjuryShift(out, s.Value)
	}

	return out, clamped
}

// drawScore maps a signal to a normalized draw-leaning score in [-1, 1].
// Positive means the signal argues for more draws. The second return value is
// false when the signal kind does not feed the draw adjustment.
func (b *Blender) drawScore(kind models.SignalKind, s models.StructuralSignal, leaguePrior float64) (float64, bool) {
	switch kind {
	case models.SignalLeagueDrawRate:
		if b.cfg.ReferenceDrawRate <= 0 {
			return 0, false
		}
		return clampUnit((s.Value - b.cfg.ReferenceDrawRate) / b.cfg.ReferenceDrawRate), true
	case models.SignalH2HDrawRate:
		if leaguePrior <= 0 {
			return 0, false
		}
		n := math.Max(0, s.Confidence)
		shrunk := (n*s.Value + b.cfg.H2HShrinkCount*leaguePrior) / (n + b.cfg.H2HShrinkCount)
		return clampUnit((shrunk - leaguePrior) / leaguePrior), true
	case models.SignalEloGap:
		// Gap magnitude is what matters: a mismatch in either direction
		// makes a draw less likely.
		return -math.Abs(saturate(s.Value, b.cfg.EloGapScale)), true
	case models.SignalRestDiff:
		return -math.Abs(saturate(s.Value, b.cfg.RestDiffScale)), true
	case models.SignalWeatherSeverity:
		return math.Max(0, math.Min(1, s.Value)), true
	case models.SignalInjurySeverity:
		// Injuries move mass between the sides, handled separately; they
		// contribute only a mild draw lean.
		return 0.25 * saturate(s.Value, b.cfg.InjuryScale), true
	default:
		return 0, false
	}
}

// applyInjuryShift moves probability mass toward the less-affected side.
// value > 0 means the home side carries the heavier injury burden.
func (b *Blender) applyInjuryShift(p models.OutcomeProbability, value float64) models.OutcomeProbability {
	if b.cfg.InjuryScale <= 0 || b.cfg.InjurySideShiftMax <= 0 {
		return p
	}
	frac := b.cfg.InjurySideShiftMax * math.Max(-1, math.Min(1, value/b.cfg.InjuryScale))
	if frac == 0 {
		return p
	}
	shift := frac * (p.HomeWin + p.AwayWin)
	// Never push a side below the floor.
	if shift > 0 {
		shift = math.Min(shift, p.HomeWin-probFloor)
	} else {
		shift = math.Max(shift, -(p.AwayWin - probFloor))
	}
	p.HomeWin -= shift
	p.AwayWin += shift
	return p
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// saturate maps |v|/scale onto [0, 1], keeping v's sign.
func saturate(v, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	s := math.Min(1, math.Abs(v)/scale)
	if v < 0 {
		return -s
	}
	return s
}
