package models

import (
	"time"

	"github.com/google/uuid"
)

// Fixture is an upcoming match to be evaluated.
type Fixture struct {
	ID       uuid.UUID `db:"id" json:"id"`
	HomeTeam string    `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam string    `db:"away_team" json:"away_team" validate:"required"`
	League   string    `db:"league" json:"league" validate:"required"`
	Kickoff  time.Time `db:"kickoff" json:"kickoff"`
}
