package service

import (
	"github.com/shopspring/decimal"
	"github.com/yourusername/match-predictor/internal/models"
)

// oddsPlaces is the precision bookmaker-style decimal odds are quoted at.
const oddsPlaces = 2

// DecimalOdds is a 1X2 price triple in decimal (European) odds.
type DecimalOdds struct {
	HomeWin decimal.Decimal `json:"home_win"`
	Draw    decimal.Decimal `json:"draw"`
	AwayWin decimal.Decimal `json:"away_win"`
}

// FairOdds converts outcome probabilities to fair decimal odds (no margin).
// Probabilities at or below zero yield zero odds rather than a panic.
func FairOdds(p models.OutcomeProbability) DecimalOdds {
	return DecimalOdds{
		HomeWin: probToOdds(p.HomeWin),
		Draw:    probToOdds(p.Draw),
		AwayWin: probToOdds(p.AwayWin),
	}
}

// OddsWithMargin converts probabilities to decimal odds with a bookmaker
// margin applied. A margin of 0.05 produces a book totalling 105%.
func OddsWithMargin(p models.OutcomeProbability, margin float64) DecimalOdds {
	scale := 1.0 + margin
	return DecimalOdds{
		HomeWin: probToOdds(p.HomeWin * scale),
		Draw:    probToOdds(p.Draw * scale),
		AwayWin: probToOdds(p.AwayWin * scale),
	}
}

// Overround returns the total implied probability of a price triple. Fair
// odds sum to 1; priced books exceed it by the margin.
func (o DecimalOdds) Overround() decimal.Decimal {
	total := decimal.Zero
	for _, odds := range []decimal.Decimal{o.HomeWin, o.Draw, o.AwayWin} {
		if odds.IsPositive() {
			total = total.Add(decimal.NewFromInt(1).Div(odds))
		}
	}
	return total.Round(4)
}

func probToOdds(p float64) decimal.Decimal {
	if p <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Div(decimal.NewFromFloat(p)).Round(oddsPlaces)
}
