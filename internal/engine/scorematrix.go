package engine

import (
	"math"

	"github.com/yourusername/match-predictor/internal/models"
)

// ScoreMatrix is the joint scoreline distribution P(i,j) for home goals i and
// away goals j, truncated at MaxGoals and renormalized to unit mass. It is
// deterministic and side-effect free once built.
type ScoreMatrix struct {
	MaxGoals   int
	LambdaHome float64
	LambdaAway float64
	cells      [][]float64
}

// NewScoreMatrix builds the scoreline distribution for a fixture from the two
// teams' ratings. Means follow the log-linear model
// exp(attack − opposing defense [+ home advantage]) with the Dixon-Coles
// correction applied to the four low-score cells.
func NewScoreMatrix(home, away models.TeamRating, homeAdvantage, rho float64, maxGoals int) *ScoreMatrix {
	lambdaHome := math.Exp(home.Attack - away.Defense + homeAdvantage)
	lambdaAway := math.Exp(away.Attack - home.Defense)
	return newScoreMatrixFromLambdas(lambdaHome, lambdaAway, rho, maxGoals)
}

func newScoreMatrixFromLambdas(lambdaHome, lambdaAway, rho float64, maxGoals int) *ScoreMatrix {
	cells := make([][]float64, maxGoals+1)
	total := 0.0
	for i := 0; i <= maxGoals; i++ {
		cells[i] = make([]float64, maxGoals+1)
		for j := 0; j <= maxGoals; j++ {
			p := poissonProb(lambdaHome, i) * poissonProb(lambdaAway, j) * DixonColesTau(i, j, rho)
			cells[i][j] = p
			total += p
		}
	}

	// Truncation at maxGoals sheds tail mass; rescale so the matrix is a
	// proper distribution.
	if total > 0 {
		for i := range cells {
			for j := range cells[i] {
				cells[i][j] /= total
			}
		}
	}

	return &ScoreMatrix{
		MaxGoals:   maxGoals,
		LambdaHome: lambdaHome,
		LambdaAway: lambdaAway,
		cells:      cells,
	}
}

// Prob returns the probability of the exact scoreline i-j.
func (m *ScoreMatrix) Prob(homeGoals, awayGoals int) float64 {
	if homeGoals < 0 || awayGoals < 0 || homeGoals > m.MaxGoals || awayGoals > m.MaxGoals {
		return 0
	}
	return m.cells[homeGoals][awayGoals]
}

// Outcomes collapses the matrix into the 1X2 probability triple. The triple's
// mass equals the matrix's total mass.
func (m *ScoreMatrix) Outcomes() models.OutcomeProbability {
	var out models.OutcomeProbability
	for i := 0; i <= m.MaxGoals; i++ {
		for j := 0; j <= m.MaxGoals; j++ {
			p := m.cells[i][j]
			switch {
			case i > j:
				out.HomeWin += p
			case i == j:
				out.Draw += p
			default:
				out.AwayWin += p
			}
		}
	}
	return out
}

// ExpectedGoals returns the expectation of home and away goals under the
// truncated distribution.
func (m *ScoreMatrix) ExpectedGoals() (home, away float64) {
	for i := 0; i <= m.MaxGoals; i++ {
		for j := 0; j <= m.MaxGoals; j++ {
			p := m.cells[i][j]
			home += float64(i) * p
			away += float64(j) * p
		}
	}
	return home, away
}

// OverUnder returns the probability of total goals strictly above / at or
// below the threshold (e.g. 2.5 for the standard market).
func (m *ScoreMatrix) OverUnder(threshold float64) (over, under float64) {
	for i := 0; i <= m.MaxGoals; i++ {
		for j := 0; j <= m.MaxGoals; j++ {
			if float64(i+j) > threshold {
				over += m.cells[i][j]
			} else {
				under += m.cells[i][j]
			}
		}
	}
	return over, under
}

// BothTeamsToScore returns the probability that both sides score.
func (m *ScoreMatrix) BothTeamsToScore() float64 {
	both := 0.0
	for i := 1; i <= m.MaxGoals; i++ {
		for j := 1; j <= m.MaxGoals; j++ {
			both += m.cells[i][j]
		}
	}
	return both
}

// TotalMass returns the sum over all cells. 1.0 after renormalization.
func (m *ScoreMatrix) TotalMass() float64 {
	total := 0.0
	for i := range m.cells {
		for j := range m.cells[i] {
			total += m.cells[i][j]
		}
	}
	return total
}

// DixonColesTau is the low-score correlation correction. It only touches the
// 0-0, 1-0, 0-1 and 1-1 cells; every other scoreline is left independent.
func DixonColesTau(homeGoals, awayGoals int, rho float64) float64 {
	if homeGoals > 1 || awayGoals > 1 {
		return 1.0
	}
	switch {
	case homeGoals == 0 && awayGoals == 0:
		return 1 - rho
	case homeGoals == 1 && awayGoals == 0:
		return 1 + rho
	case homeGoals == 0 && awayGoals == 1:
		return 1 + rho
	default: // 1-1
		return 1 - rho
	}
}

// poissonProb computes P(X = k) for X ~ Poisson(lambda) in log space for
// numerical stability.
func poissonProb(lambda float64, k int) float64 {
	if k < 0 {
		return 0
	}
	if lambda <= 0 {
		if k == 0 {
			return 1.0
		}
		return 0
	}
	logProb := float64(k)*math.Log(lambda) - lambda - logFactorial(k)
	return math.Exp(logProb)
}

func logFactorial(n int) float64 {
	if n <= 1 {
		return 0
	}
	result := 0.0
	for i := 2; i <= n; i++ {
		result += math.Log(float64(i))
	}
	return result
}
