package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/match-predictor/internal/models"
)

// MemoryMatchRepository is an in-memory MatchRepository used by tests and
// one-shot training snapshots.
type MemoryMatchRepository struct {
	mu      sync.RWMutex
	nextID  int64
	matches []*models.MatchRecord
}

// NewMemoryMatchRepository creates an empty in-memory repository
func NewMemoryMatchRepository() *MemoryMatchRepository {
	return &MemoryMatchRepository{nextID: 1}
}

// Insert stores a completed match
func (r *MemoryMatchRepository) Insert(_ context.Context, match *models.MatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *match
	stored.ID = r.nextID
	r.nextID++
	r.matches = append(r.matches, &stored)
	match.ID = stored.ID
	return nil
}

// InsertBatch stores multiple matches
func (r *MemoryMatchRepository) InsertBatch(ctx context.Context, matches []*models.MatchRecord) error {
	for _, match := range matches {
		if err := r.Insert(ctx, match); err != nil {
			return err
		}
	}
	return nil
}

// GetByLeague retrieves a league's matches within a date range ordered by date
func (r *MemoryMatchRepository) GetByLeague(_ context.Context, league string, start, end time.Time) ([]*models.MatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.MatchRecord
	for _, match := range r.matches {
		if match.League != league {
			continue
		}
		if match.Date.Before(start) || match.Date.After(end) {
			continue
		}
		copied := *match
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// GetByTeams retrieves the most recent meetings between two teams, newest first
func (r *MemoryMatchRepository) GetByTeams(_ context.Context, home, away string, limit int) ([]*models.MatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.MatchRecord
	for _, match := range r.matches {
		sameOrientation := match.HomeTeam == home && match.AwayTeam == away
		flipped := match.HomeTeam == away && match.AwayTeam == home
		if !sameOrientation && !flipped {
			continue
		}
		copied := *match
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Leagues lists the distinct leagues with stored history
func (r *MemoryMatchRepository) Leagues(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var leagues []string
	for _, match := range r.matches {
		if !seen[match.League] {
			seen[match.League] = true
			leagues = append(leagues, match.League)
		}
	}
	sort.Strings(leagues)
	return leagues, nil
}
