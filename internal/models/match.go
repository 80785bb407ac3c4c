package models

import (
	"time"
)

// MatchRecord represents a completed football match. Records are immutable
// historical facts and are the sole input to strength estimation.
type MatchRecord struct {
	ID        int64     `db:"id" json:"id"`
	HomeTeam  string    `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam  string    `db:"away_team" json:"away_team" validate:"required"`
	League    string    `db:"league" json:"league" validate:"required"`
	Date      time.Time `db:"match_date" json:"date" validate:"required"`
	HomeGoals int       `db:"home_goals" json:"home_goals" validate:"gte=0"`
	AwayGoals int       `db:"away_goals" json:"away_goals" validate:"gte=0"`
	Weight    float64   `db:"weight" json:"weight"`
}

// IsDraw reports whether the match ended level.
func (m *MatchRecord) IsDraw() bool {
	return m.HomeGoals == m.AwayGoals
}

// TotalGoals returns the combined score.
func (m *MatchRecord) TotalGoals() int {
	return m.HomeGoals + m.AwayGoals
}

// Involves reports whether the given team played in this match.
func (m *MatchRecord) Involves(team string) bool {
	return m.HomeTeam == team || m.AwayTeam == team
}
