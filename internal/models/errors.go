package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrNoActiveModel = errors.New("no active model for requested type")
	ErrDuplicateKey  = errors.New("duplicate key violation")
	ErrInvalidID     = errors.New("invalid ID format")
)

// InsufficientDataError reports that a league lacks enough history to
// estimate ratings. It is scoped to the named league and never aborts the
// rest of a training run.
type InsufficientDataError struct {
	League  string
	Teams   int
	Matches int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for league %s: %d teams, %d matches", e.League, e.Teams, e.Matches)
}

// InvalidParameterError reports a fitted parameter outside its valid bounds.
// It is fatal for the affected parameter set and blocks publishing.
type InvalidParameterError struct {
	Name  string
	Value float64
	Min   float64
	Max   float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("parameter %s=%g outside valid bounds [%g, %g]", e.Name, e.Value, e.Min, e.Max)
}
