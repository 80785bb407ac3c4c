package models

import (
	"time"

	"github.com/google/uuid"
)

// ModelState describes where a parameter set sits in its lifecycle.
type ModelState string

const (
	// StateTraining marks a parameter set that is still being fitted.
	StateTraining ModelState = "training"
	// StateActive marks the single parameter set used for live evaluation.
	StateActive ModelState = "active"
	// StateRetired marks superseded parameter sets kept for audit.
	StateRetired ModelState = "retired"
)

// ModelParameters is a versioned, immutable parameter set produced by one
// training run. At most one active instance exists per model type.
type ModelParameters struct {
	ID            uuid.UUID             `db:"id" json:"id"`
	ModelType     string                `db:"model_type" json:"model_type" validate:"required"`
	Version       string                `db:"version" json:"version" validate:"required"`
	TeamStrengths map[string]TeamRating `db:"team_strengths" json:"team_strengths"`
	HomeAdvantage float64               `db:"home_advantage" json:"home_advantage"`
	Rho           float64               `db:"rho" json:"rho"`
	Temperature   float64               `db:"temperature" json:"temperature" validate:"gt=0"`
	State         ModelState            `db:"state" json:"state"`
	TrainedAt     time.Time             `db:"trained_at" json:"trained_at"`
	CreatedAt     time.Time             `db:"created_at" json:"created_at"`
}

// RatingFor returns the stored rating for a team, falling back to the neutral
// rating when the team has no history in this parameter set.
func (p *ModelParameters) RatingFor(teamID string) TeamRating {
	if r, ok := p.TeamStrengths[teamID]; ok {
		return r
	}
	return NeutralRating(teamID, p.TrainedAt)
}

// IsActive reports whether this parameter set is the live one.
func (p *ModelParameters) IsActive() bool {
	return p.State == StateActive
}

// TrainingDiagnostics summarizes how a training run went. A non-converged run
// is still usable; the flag exists so operators can watch for drift.
type TrainingDiagnostics struct {
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
	TimedOut      bool    `json:"timed_out"`
	Rho           float64 `json:"rho"`
	Temperature   float64 `json:"temperature"`
	HomeAdvantage float64 `json:"home_advantage"`
	Teams         int     `json:"teams"`
	Matches       int     `json:"matches"`
	// MeanEntropy is the average entropy of held-out outcome distributions,
	// tracked to spot calibration drift between runs.
	MeanEntropy float64 `json:"mean_entropy"`
}
