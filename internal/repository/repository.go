package repository

import (
	"fmt"

	"github.com/yourusername/match-predictor/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Match MatchRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Match: NewPostgresMatchRepository(db),
	}, nil
}
