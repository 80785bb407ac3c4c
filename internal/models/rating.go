package models

import "time"

// TeamRating holds the estimated attack and defense strength for a single
// team. Ratings are produced by the strength estimator each training run and
// are read-only to every downstream component. A neutral rating is (1.0, 1.0).
type TeamRating struct {
	TeamID  string    `db:"team_id" json:"team_id" validate:"required"`
	Attack  float64   `db:"attack" json:"attack" validate:"gt=0"`
	Defense float64   `db:"defense" json:"defense" validate:"gt=0"`
	AsOf    time.Time `db:"as_of" json:"as_of"`
}

// NeutralRating returns the rating assigned to a team with no usable history.
func NeutralRating(teamID string, asOf time.Time) TeamRating {
	return TeamRating{TeamID: teamID, Attack: 1.0, Defense: 1.0, AsOf: asOf}
}

// IsNeutral reports whether the rating carries no information beyond the
// league average.
func (r TeamRating) IsNeutral() bool {
	return r.Attack == 1.0 && r.Defense == 1.0
}
