package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/match-predictor/internal/database"
	"github.com/yourusername/match-predictor/internal/models"
)

const errScanMatch = "failed to scan match: %w"

const matchColumns = "id, home_team, away_team, league, match_date, home_goals, away_goals, weight"

// PostgresMatchRepository implements MatchRepository for PostgreSQL
type PostgresMatchRepository struct {
	db *database.DB
}

// NewPostgresMatchRepository creates a new match repository
func NewPostgresMatchRepository(db *database.DB) MatchRepository {
	return &PostgresMatchRepository{db: db}
}

// Insert stores a completed match
func (r *PostgresMatchRepository) Insert(ctx context.Context, match *models.MatchRecord) error {
	query := `
		INSERT INTO matches (home_team, away_team, league, match_date, home_goals, away_goals, weight)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		match.HomeTeam, match.AwayTeam, match.League, match.Date,
		match.HomeGoals, match.AwayGoals, match.Weight,
	).Scan(&match.ID)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	return nil
}

// InsertBatch stores multiple matches in a single transaction
func (r *PostgresMatchRepository) InsertBatch(ctx context.Context, matches []*models.MatchRecord) error {
	if len(matches) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO matches (home_team, away_team, league, match_date, home_goals, away_goals, weight)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		for _, match := range matches {
			err := tx.QueryRow(ctx, query,
				match.HomeTeam, match.AwayTeam, match.League, match.Date,
				match.HomeGoals, match.AwayGoals, match.Weight,
			).Scan(&match.ID)
			if err != nil {
				return fmt.Errorf("failed to insert match batch: %w", err)
			}
		}
		return nil
	})
}

// GetByLeague retrieves a league's matches within a date range ordered by date
func (r *PostgresMatchRepository) GetByLeague(ctx context.Context, league string, start, end time.Time) ([]*models.MatchRecord, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE league = $1 AND match_date >= $2 AND match_date <= $3
		ORDER BY match_date ASC
	`

	rows, err := r.db.Query(ctx, query, league, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches by league: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// GetByTeams retrieves the most recent meetings between two teams in either
// home/away orientation, newest first.
func (r *PostgresMatchRepository) GetByTeams(ctx context.Context, home, away string, limit int) ([]*models.MatchRecord, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE (home_team = $1 AND away_team = $2) OR (home_team = $2 AND away_team = $1)
		ORDER BY match_date DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, home, away, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches by teams: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// Leagues lists the distinct leagues with stored history
func (r *PostgresMatchRepository) Leagues(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, "SELECT DISTINCT league FROM matches ORDER BY league")
	if err != nil {
		return nil, fmt.Errorf("failed to query leagues: %w", err)
	}
	defer rows.Close()

	var leagues []string
	for rows.Next() {
		var league string
		if err := rows.Scan(&league); err != nil {
			return nil, fmt.Errorf("failed to scan league: %w", err)
		}
		leagues = append(leagues, league)
	}

	return leagues, rows.Err()
}

func scanMatches(rows pgx.Rows) ([]*models.MatchRecord, error) {
	var matches []*models.MatchRecord
	for rows.Next() {
		match := &models.MatchRecord{}
		err := rows.Scan(
			&match.ID, &match.HomeTeam, &match.AwayTeam, &match.League,
			&match.Date, &match.HomeGoals, &match.AwayGoals, &match.Weight,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanMatch, err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return matches, nil
}
