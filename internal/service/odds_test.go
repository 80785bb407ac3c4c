package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/match-predictor/internal/models"
)

func TestFairOddsRoundTrip(t *testing.T) {
	p := models.OutcomeProbability{HomeWin: 0.50, Draw: 0.25, AwayWin: 0.25}
	odds := FairOdds(p)

	assert.True(t, odds.HomeWin.Equal(decimal.NewFromFloat(2.00)), "got %s", odds.HomeWin)
	assert.True(t, odds.Draw.Equal(decimal.NewFromFloat(4.00)), "got %s", odds.Draw)
	assert.True(t, odds.AwayWin.Equal(decimal.NewFromFloat(4.00)), "got %s", odds.AwayWin)
}

func TestFairOddsOverroundIsOne(t *testing.T) {
	p := models.OutcomeProbability{HomeWin: 0.50, Draw: 0.25, AwayWin: 0.25}
	odds := FairOdds(p)

	overround := odds.Overround()
	assert.True(t, overround.Equal(decimal.NewFromInt(1)), "fair book must total 100%%, got %s", overround)
}

func TestOddsWithMarginShortensPrices(t *testing.T) {
	p := models.OutcomeProbability{HomeWin: 0.45, Draw: 0.28, AwayWin: 0.27}

	fair := FairOdds(p)
	priced := OddsWithMargin(p, 0.05)

	assert.True(t, priced.HomeWin.LessThan(fair.HomeWin))
	assert.True(t, priced.Draw.LessThan(fair.Draw))
	assert.True(t, priced.AwayWin.LessThan(fair.AwayWin))

	overround := priced.Overround()
	assert.True(t, overround.GreaterThan(decimal.NewFromInt(1)))
}

func TestProbToOddsZeroProbability(t *testing.T) {
	odds := FairOdds(models.OutcomeProbability{HomeWin: 1, Draw: 0, AwayWin: 0})
	assert.True(t, odds.Draw.IsZero())
	assert.True(t, odds.HomeWin.Equal(decimal.NewFromInt(1)))
}
