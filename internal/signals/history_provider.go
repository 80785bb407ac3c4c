package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/match-predictor/internal/models"
	"github.com/yourusername/match-predictor/internal/repository"
)

const (
	defaultLeagueWindowDays = 730
	defaultH2HLimit         = 10
)

// HistoryProvider derives draw-rate signals from stored match history. It
// serves league_draw_rate and h2h_draw_rate; confidence is the sample size.
type HistoryProvider struct {
	matches    repository.MatchRepository
	windowDays int
	h2hLimit   int
}

// NewHistoryProvider creates a provider backed by the match repository.
func NewHistoryProvider(matches repository.MatchRepository) *HistoryProvider {
	return &HistoryProvider{
		matches:    matches,
		windowDays: defaultLeagueWindowDays,
		h2hLimit:   defaultH2HLimit,
	}
}

// Name identifies the provider in logs.
func (p *HistoryProvider) Name() string { return "history" }

// Fetch computes the league and head-to-head draw rates for a fixture.
func (p *HistoryProvider) Fetch(ctx context.Context, fixture *models.Fixture) ([]Reading, error) {
	end := fixture.Kickoff
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start := end.AddDate(0, 0, -p.windowDays)

	leagueMatches, err := p.matches.GetByLeague(ctx, fixture.League, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load league history: %w", err)
	}

	readings := []Reading{drawRateReading(models.SignalLeagueDrawRate, leagueMatches)}

	h2hMatches, err := p.matches.GetByTeams(ctx, fixture.HomeTeam, fixture.AwayTeam, p.h2hLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load head-to-head history: %w", err)
	}
	readings = append(readings, drawRateReading(models.SignalH2HDrawRate, h2hMatches))

	return readings, nil
}

func drawRateReading(kind models.SignalKind, matches []*models.MatchRecord) Reading {
	if len(matches) == 0 {
		return Absent(kind)
	}

	draws := 0
	for _, match := range matches {
		if match.IsDraw() {
			draws++
		}
	}
	rate := float64(draws) / float64(len(matches))
	return Present(kind, rate, float64(len(matches)))
}
