// Package engine implements the match outcome probability engine: team
// strength estimation, scoreline distribution, signal blending, and
// calibration.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/match-predictor/internal/models"
)

const (
	// minWeight is the floor below which a decayed match weight is treated
	// as zero and the match is excluded entirely.
	minWeight = 1e-12

	// maxSweepRatio caps the multiplicative update applied to a rating in a
	// single sweep. Keeps early sweeps from overshooting on sparse data.
	maxSweepRatio = 2.0
	minSweepRatio = 0.5

	// homeAdvantageDamping slows the home advantage fixpoint update so it
	// settles together with the ratings.
	homeAdvantageDamping = 0.5

	maxHomeAdvantage = 1.0
	minHomeAdvantage = -1.0
)

// EstimatorConfig holds the tunables for one estimation run.
type EstimatorConfig struct {
	HalfLifeDays  float64
	MaxAgeDays    float64 // 0 disables the hard cutoff
	Epsilon       float64
	MaxIterations int
	MinTeams      int
	MinMatches    float64 // minimum total decayed weight
	RhoMin        float64
	RhoMax        float64
	HomeAdvantage float64 // starting value for the fixpoint update
}

// DefaultEstimatorConfig returns the tunables used when the config file does
// not override them.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		HalfLifeDays:  270,
		MaxAgeDays:    0,
		Epsilon:       1e-6,
		MaxIterations: 200,
		MinTeams:      4,
		MinMatches:    10,
		RhoMin:        -0.5,
		RhoMax:        0.5,
		HomeAdvantage: 0.3,
	}
}

// EstimateResult is the output of one estimation run.
type EstimateResult struct {
	Ratings       map[string]models.TeamRating
	HomeAdvantage float64
	Rho           float64
	Iterations    int
	Converged     bool
	TimedOut      bool
}

// Estimator fits attack/defense ratings from weighted match history via
// iterative proportional fitting.
type Estimator struct {
	cfg    EstimatorConfig
	logger *logrus.Logger
}

// NewEstimator creates an estimator with the given configuration.
func NewEstimator(cfg EstimatorConfig, logger *logrus.Logger) *Estimator {
	return &Estimator{cfg: cfg, logger: logger}
}

// weightedMatch references teams by dense index so the sweep stays
// cache-friendly.
type weightedMatch struct {
	home, away           int
	homeGoals, awayGoals int
	weight               float64
}

// Fit estimates ratings for one league from its match history. teamUniverse
// may list teams beyond those appearing in matches; such teams receive the
// neutral rating. asOf anchors the time-decay weighting.
func (e *Estimator) Fit(ctx context.Context, league string, matches []models.MatchRecord, teamUniverse []string, asOf time.Time) (*EstimateResult, error) {
	index := make(map[string]int)
	names := make([]string, 0, len(teamUniverse))
	addTeam := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		i := len(names)
		index[name] = i
		names = append(names, name)
		return i
	}
	for _, t := range teamUniverse {
		addTeam(t)
	}

	prepared := make([]weightedMatch, 0, len(matches))
	totalWeight := 0.0
	playing := make(map[int]bool)
	for _, m := range matches {
		w := e.matchWeight(m, asOf)
		if w < minWeight {
			continue
		}
		h := addTeam(m.HomeTeam)
		a := addTeam(m.AwayTeam)
		playing[h] = true
		playing[a] = true
		prepared = append(prepared, weightedMatch{
			home:      h,
			away:      a,
			homeGoals: m.HomeGoals,
			awayGoals: m.AwayGoals,
			weight:    w,
		})
		totalWeight += w
	}

	if len(playing) < e.cfg.MinTeams || totalWeight < e.cfg.MinMatches {
		return nil, &models.InsufficientDataError{League: league, Teams: len(playing), Matches: len(prepared)}
	}

	n := len(names)
	playingIdx := make([]int, 0, len(playing))
	for i := 0; i < n; i++ {
		if playing[i] {
			playingIdx = append(playingIdx, i)
		}
	}
	attack := make([]float64, n)
	defense := make([]float64, n)
	for i := range attack {
		attack[i] = 1.0
		defense[i] = 1.0
	}
	homeAdvantage := e.cfg.HomeAdvantage

	result := &EstimateResult{}
	for iter := 0; iter < e.cfg.MaxIterations; iter++ {
		if ctx.Err() != nil {
			result.TimedOut = true
			break
		}

		maxChange := e.sweep(prepared, attack, defense, &homeAdvantage, playingIdx)
		result.Iterations = iter + 1

		if maxChange < e.cfg.Epsilon {
			result.Converged = true
			break
		}
	}

	if !result.Converged && e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"league":     league,
			"iterations": result.Iterations,
			"timed_out":  result.TimedOut,
		}).Warn("Rating estimation stopped before convergence")
	}

	result.HomeAdvantage = homeAdvantage
	result.Rho = e.fitRho(prepared, attack, defense, homeAdvantage)

	result.Ratings = make(map[string]models.TeamRating, n)
	for i, name := range names {
		if !playing[i] {
			result.Ratings[name] = models.NeutralRating(name, asOf)
			continue
		}
		result.Ratings[name] = models.TeamRating{
			TeamID:  name,
			Attack:  attack[i],
			Defense: defense[i],
			AsOf:    asOf,
		}
	}
	return result, nil
}

// matchWeight computes the exponential time-decay weight for a match. A
// record carrying a preassigned positive weight is scaled by the decay; a
// match older than the configured cutoff gets weight zero.
func (e *Estimator) matchWeight(m models.MatchRecord, asOf time.Time) float64 {
	days := asOf.Sub(m.Date).Hours() / 24
	if days < 0 {
		days = 0
	}
	if e.cfg.MaxAgeDays > 0 && days > e.cfg.MaxAgeDays {
		return 0
	}
	decay := 1.0
	if e.cfg.HalfLifeDays > 0 {
		decay = math.Exp2(-days / e.cfg.HalfLifeDays)
	}
	base := m.Weight
	if base == 0 {
		base = 1.0
	}
	if base < 0 {
		return 0
	}
	return base * decay
}

// accumulate tallies weighted observed and expected goals per team under the
// current parameters.
func accumulate(matches []weightedMatch, attack, defense []float64, homeAdvantage float64, obsFor, expFor, obsAgainst, expAgainst []float64) (obsHome, expHome float64) {
	for i := range obsFor {
		obsFor[i], expFor[i], obsAgainst[i], expAgainst[i] = 0, 0, 0, 0
	}
	for _, m := range matches {
		lambdaHome := math.Exp(attack[m.home] - defense[m.away] + homeAdvantage)
		lambdaAway := math.Exp(attack[m.away] - defense[m.home])

		obsFor[m.home] += m.weight * float64(m.homeGoals)
		expFor[m.home] += m.weight * lambdaHome
		obsFor[m.away] += m.weight * float64(m.awayGoals)
		expFor[m.away] += m.weight * lambdaAway

		obsAgainst[m.home] += m.weight * float64(m.awayGoals)
		expAgainst[m.home] += m.weight * lambdaAway
		obsAgainst[m.away] += m.weight * float64(m.homeGoals)
		expAgainst[m.away] += m.weight * lambdaHome

		obsHome += m.weight * float64(m.homeGoals)
		expHome += m.weight * lambdaHome
	}
	return obsHome, expHome
}

// sweep performs one iterative proportional fitting pass: attack strengths
// are updated against current expectations, then defenses, then the home
// advantage, with expectations refreshed between sub-steps so the two sides
// of the model do not chase each other into a limit cycle. Multiplicative
// ratio updates act on the exponentiated strengths, so the rating itself
// moves by the log of the clamped observed/expected ratio.
//
// Returns the largest relative parameter change measured after
// renormalization; the component of a sweep that renormalization removes is
// not progress and must not keep the loop alive.
func (e *Estimator) sweep(matches []weightedMatch, attack, defense []float64, homeAdvantage *float64, playingIdx []int) float64 {
	n := len(attack)
	prevAttack := append([]float64(nil), attack...)
	prevDefense := append([]float64(nil), defense...)
	prevHome := *homeAdvantage

	obsFor := make([]float64, n)
	expFor := make([]float64, n)
	obsAgainst := make([]float64, n)
	expAgainst := make([]float64, n)

	accumulate(matches, attack, defense, *homeAdvantage, obsFor, expFor, obsAgainst, expAgainst)
	for i := 0; i < n; i++ {
		if obsFor[i] > 0 && expFor[i] > 0 {
			attack[i] += math.Log(clampRatio(obsFor[i] / expFor[i]))
		}
	}
	recenterToUnitMean(attack, playingIdx)

	accumulate(matches, attack, defense, *homeAdvantage, obsFor, expFor, obsAgainst, expAgainst)
	for i := 0; i < n; i++ {
		if obsAgainst[i] > 0 && expAgainst[i] > 0 {
			// Conceding less than expected means a stronger defense.
			defense[i] += math.Log(clampRatio(expAgainst[i] / obsAgainst[i]))
		}
	}
	recenterToUnitMean(defense, playingIdx)

	obsHome, expHome := accumulate(matches, attack, defense, *homeAdvantage, obsFor, expFor, obsAgainst, expAgainst)
	if obsHome > 0 && expHome > 0 {
		next := *homeAdvantage + homeAdvantageDamping*math.Log(obsHome/expHome)
		*homeAdvantage = math.Max(minHomeAdvantage, math.Min(maxHomeAdvantage, next))
	}

	maxChange := relChange(prevHome, *homeAdvantage)
	for i := 0; i < n; i++ {
		maxChange = math.Max(maxChange, relChange(prevAttack[i], attack[i]))
		maxChange = math.Max(maxChange, relChange(prevDefense[i], defense[i]))
	}
	return maxChange
}

// fitRho runs a bounded golden-section search for the Dixon-Coles correlation
// maximizing the weighted likelihood of the four low-score outcomes.
func (e *Estimator) fitRho(matches []weightedMatch, attack, defense []float64, homeAdvantage float64) float64 {
	lowScore := make([]weightedMatch, 0, len(matches))
	for _, m := range matches {
		if m.homeGoals <= 1 && m.awayGoals <= 1 {
			lowScore = append(lowScore, m)
		}
	}
	if len(lowScore) == 0 {
		return 0
	}

	objective := func(rho float64) float64 {
		ll := 0.0
		for _, m := range lowScore {
			lambdaHome := math.Exp(attack[m.home] - defense[m.away] + homeAdvantage)
			lambdaAway := math.Exp(attack[m.away] - defense[m.home])
			p := poissonProb(lambdaHome, m.homeGoals) *
				poissonProb(lambdaAway, m.awayGoals) *
				DixonColesTau(m.homeGoals, m.awayGoals, rho)
			if p > 0 {
				ll += m.weight * math.Log(p)
			}
		}
		return ll
	}

	return goldenSectionMax(objective, e.cfg.RhoMin, e.cfg.RhoMax, 1e-6)
}

// recenterToUnitMean shifts each playing team's rating by the same amount so
// their mean is exactly 1.0. A uniform shift scales all Poisson means by a
// common factor, so relative strengths are untouched. Teams outside the match
// set keep their untouched neutral 1.0, which preserves the unit mean over
// the full rating set.
func recenterToUnitMean(values []float64, playingIdx []int) {
	if len(playingIdx) == 0 {
		return
	}
	sum := 0.0
	for _, i := range playingIdx {
		sum += values[i]
	}
	mean := sum / float64(len(playingIdx))
	for _, i := range playingIdx {
		values[i] += 1.0 - mean
	}
}

func clampRatio(r float64) float64 {
	if r > maxSweepRatio {
		return maxSweepRatio
	}
	if r < minSweepRatio {
		return minSweepRatio
	}
	return r
}

func relChange(old, next float64) float64 {
	denom := math.Abs(old)
	if denom < 1e-9 {
		denom = 1e-9
	}
	return math.Abs(next-old) / denom
}

// goldenSectionMax maximizes a unimodal function on [lo, hi].
func goldenSectionMax(f func(float64) float64, lo, hi, tol float64) float64 {
	const invPhi = 0.6180339887498949
	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)
	for b-a > tol {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}
	return (a + b) / 2
}
