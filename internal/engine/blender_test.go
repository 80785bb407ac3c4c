package engine

import (
	"math"
	"testing"

	"github.com/yourusername/match-predictor/internal/models"
)

var rawTriple = models.OutcomeProbability{HomeWin: 0.45, Draw: 0.28, AwayWin: 0.27}

func TestBlendNoSignalsIsIdentity(t *testing.T) {
	b := NewBlender(DefaultBlenderConfig())
	out, clamped := b.Blend(rawTriple, nil)
	if out != rawTriple {
		t.Fatalf("blend with no signals changed the triple: %+v", out)
	}
	if clamped {
		t.Fatalf("identity blend reported a clamp")
	}
}

func TestBlendRespectsMaxDrawDelta(t *testing.T) {
	cfg := DefaultBlenderConfig()
	b := NewBlender(cfg)

	combos := [][]models.StructuralSignal{
		{{Kind: models.SignalWeatherSeverity, Value: 1.0}},
		{{Kind: models.SignalEloGap, Value: 2000}},
		{
			{Kind: models.SignalLeagueDrawRate, Value: 0.50, Confidence: 380},
			{Kind: models.SignalWeatherSeverity, Value: 1.0},
			{Kind: models.SignalH2HDrawRate, Value: 1.0, Confidence: 50},
		},
		{
			{Kind: models.SignalEloGap, Value: 900},
			{Kind: models.SignalRestDiff, Value: -9},
			{Kind: models.SignalInjurySeverity, Value: 5},
		},
	}

	for i, signals := range combos {
		out, _ := b.Blend(rawTriple, signals)
		if delta := math.Abs(out.Draw - rawTriple.Draw); delta > cfg.MaxDrawDelta+1e-12 {
			t.Errorf("combo %d: draw delta %.4f exceeds bound %.4f", i, delta, cfg.MaxDrawDelta)
		}
		if math.Abs(out.Sum()-1.0) > 1e-9 {
			t.Errorf("combo %d: blended triple sums to %.12f", i, out.Sum())
		}
	}
}

func TestBlendReportsClampAtBound(t *testing.T) {
	cfg := DefaultBlenderConfig()
	b := NewBlender(cfg)

	// A saturated signal pushes the adjustment to exactly the bound.
	out, clamped := b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalWeatherSeverity, Value: 1.0},
	})
	if !clamped {
		t.Errorf("saturated signal should report the draw adjustment as clamped")
	}
	if math.Abs(out.Draw-(rawTriple.Draw+cfg.MaxDrawDelta)) > 1e-12 {
		t.Errorf("clamped draw = %.6f, want %.6f", out.Draw, rawTriple.Draw+cfg.MaxDrawDelta)
	}

	_, clamped = b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalWeatherSeverity, Value: 0.3},
	})
	if clamped {
		t.Errorf("moderate signal should stay inside the bound")
	}
}

func TestBlendHighLeagueDrawRateRaisesDraw(t *testing.T) {
	b := NewBlender(DefaultBlenderConfig())
	out, _ := b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalLeagueDrawRate, Value: 0.35},
	})
	if out.Draw <= rawTriple.Draw {
		t.Errorf("draw-heavy league should raise draw: %.4f -> %.4f", rawTriple.Draw, out.Draw)
	}
}

func TestBlendLargeGapLowersDraw(t *testing.T) {
	b := NewBlender(DefaultBlenderConfig())
	out, _ := b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalEloGap, Value: 350},
	})
	if out.Draw >= rawTriple.Draw {
		t.Errorf("large rating gap should lower draw: %.4f -> %.4f", rawTriple.Draw, out.Draw)
	}
	// The gap direction must not matter.
	mirrored, _ := b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalEloGap, Value: -350},
	})
	if math.Abs(mirrored.Draw-out.Draw) > 1e-12 {
		t.Errorf("gap sign changed the draw effect: %.6f vs %.6f", mirrored.Draw, out.Draw)
	}
}

func TestBlendLowSampleH2HShrinksTowardPrior(t *testing.T) {
	b := NewBlender(DefaultBlenderConfig())

	// Two meetings, both drawn: raw rate 1.0 but almost no evidence.
	sparse, _ := b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalH2HDrawRate, Value: 1.0, Confidence: 2},
	})
	// Forty meetings with the same rate carry far more weight.
	dense, _ := b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalH2HDrawRate, Value: 1.0, Confidence: 40},
	})

	sparseDelta := sparse.Draw - rawTriple.Draw
	denseDelta := dense.Draw - rawTriple.Draw
	if sparseDelta <= 0 || denseDelta <= 0 {
		t.Fatalf("draw-heavy head-to-head should raise draw (sparse %.4f, dense %.4f)", sparseDelta, denseDelta)
	}
	if sparseDelta >= denseDelta {
		t.Errorf("low-sample h2h should be trusted less: sparse delta %.4f, dense delta %.4f", sparseDelta, denseDelta)
	}
}

func TestBlendInjuryShiftsTowardHealthierSide(t *testing.T) {
	b := NewBlender(DefaultBlenderConfig())

	// Positive differential: home side carries the heavier injury burden.
	out, _ := b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalInjurySeverity, Value: 4},
	})
	if out.HomeWin >= rawTriple.HomeWin {
		t.Errorf("injured home side should lose win probability: %.4f -> %.4f", rawTriple.HomeWin, out.HomeWin)
	}
	if out.AwayWin <= rawTriple.AwayWin {
		t.Errorf("healthier away side should gain win probability: %.4f -> %.4f", rawTriple.AwayWin, out.AwayWin)
	}
	if math.Abs(out.Sum()-1.0) > 1e-9 {
		t.Errorf("injury shift broke normalization: %.12f", out.Sum())
	}
}

func TestBlendPreservesHomeAwayRatio(t *testing.T) {
	b := NewBlender(DefaultBlenderConfig())
	out, _ := b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalWeatherSeverity, Value: 0.8},
	})

	wantRatio := rawTriple.HomeWin / rawTriple.AwayWin
	gotRatio := out.HomeWin / out.AwayWin
	if math.Abs(gotRatio-wantRatio) > 1e-9 {
		t.Errorf("home:away ratio changed from %.6f to %.6f", wantRatio, gotRatio)
	}
}

func TestBlendDuplicateSignalFirstWins(t *testing.T) {
	b := NewBlender(DefaultBlenderConfig())
	first, _ := b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalWeatherSeverity, Value: 0.9},
		{Kind: models.SignalWeatherSeverity, Value: 0.1},
	})
	only, _ := b.Blend(rawTriple, []models.StructuralSignal{
		{Kind: models.SignalWeatherSeverity, Value: 0.9},
	})
	if first != only {
		t.Errorf("duplicate signal kind should not alter the result: %+v vs %+v", first, only)
	}
}
