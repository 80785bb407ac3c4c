package models

import "math"

// OutcomeProbability is the (home win, draw, away win) triple for a fixture.
// It is ephemeral, recomputed per request, and must always sum to 1 within
// floating tolerance.
type OutcomeProbability struct {
	HomeWin float64 `json:"home_win"`
	Draw    float64 `json:"draw"`
	AwayWin float64 `json:"away_win"`
}

// Sum returns the total probability mass of the triple.
func (o OutcomeProbability) Sum() float64 {
	return o.HomeWin + o.Draw + o.AwayWin
}

// Normalized returns the triple rescaled to unit mass. A zero triple is
// returned unchanged.
func (o OutcomeProbability) Normalized() OutcomeProbability {
	total := o.Sum()
	if total <= 0 {
		return o
	}
	return OutcomeProbability{
		HomeWin: o.HomeWin / total,
		Draw:    o.Draw / total,
		AwayWin: o.AwayWin / total,
	}
}

// Entropy returns the Shannon entropy of the triple in nats. Higher values
// mean less decisive predictions.
func (o OutcomeProbability) Entropy() float64 {
	entropy := 0.0
	for _, p := range []float64{o.HomeWin, o.Draw, o.AwayWin} {
		if p > 0 {
			entropy -= p * math.Log(p)
		}
	}
	return entropy
}

// Valid reports whether every component is a finite probability and the
// triple sums to one within tolerance.
func (o OutcomeProbability) Valid() bool {
	for _, p := range []float64{o.HomeWin, o.Draw, o.AwayWin} {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
			return false
		}
	}
	return math.Abs(o.Sum()-1.0) < 1e-9
}
