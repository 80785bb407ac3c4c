package repository

import (
	"context"
	"time"

	"github.com/yourusername/match-predictor/internal/models"
)

// MatchRepository defines the interface for match history access
type MatchRepository interface {
	Insert(ctx context.Context, match *models.MatchRecord) error
	InsertBatch(ctx context.Context, matches []*models.MatchRecord) error
	GetByLeague(ctx context.Context, league string, start, end time.Time) ([]*models.MatchRecord, error)
	GetByTeams(ctx context.Context, home, away string, limit int) ([]*models.MatchRecord, error)
	Leagues(ctx context.Context) ([]string, error)
}
