package database

import (
	"context"
	"fmt"

	"github.com/yourusername/match-predictor/internal/config"
)

// Initialize creates a database connection pool and verifies the schema is
// in place.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	// The match history and model parameter tables must exist before any
	// component runs.
	var exists bool
	err = db.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_name IN ('matches', 'model_parameters')
		)`,
	).Scan(&exists)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}
	if !exists {
		db.Close()
		return nil, fmt.Errorf("schema not initialized, run database migrations first")
	}

	return db, nil
}
