package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/match-predictor/internal/database"
	"github.com/yourusername/match-predictor/internal/models"
)

// PostgresRegistry persists model parameter sets in PostgreSQL. Team
// strengths travel as a JSON document; the lifecycle columns enforce the
// one-active-per-type invariant inside a transaction.
type PostgresRegistry struct {
	db *database.DB
}

// NewPostgresRegistry creates a Postgres-backed registry.
func NewPostgresRegistry(db *database.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

const modelColumns = `id, model_type, version, team_strengths, home_advantage, rho, temperature, state, trained_at, created_at`

// GetActive retrieves the single active parameter set for a model type.
func (r *PostgresRegistry) GetActive(ctx context.Context, modelType string) (*models.ModelParameters, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM model_parameters
		WHERE model_type = $1 AND state = 'active'
	`

	params, err := r.scanOne(r.db.GetPool().QueryRow(ctx, query, modelType))
	if noRows(err) {
		return nil, fmt.Errorf("model type %s: %w", modelType, models.ErrNoActiveModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active model: %w", err)
	}
	return params, nil
}

// GetVersion retrieves a specific parameter set version.
func (r *PostgresRegistry) GetVersion(ctx context.Context, modelType, version string) (*models.ModelParameters, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM model_parameters
		WHERE model_type = $1 AND version = $2
	`

	params, err := r.scanOne(r.db.GetPool().QueryRow(ctx, query, modelType, version))
	if noRows(err) {
		return nil, fmt.Errorf("model %s version %s: %w", modelType, version, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model version: %w", err)
	}
	return params, nil
}

// Publish inserts the parameter set as active and retires the previous
// active version of the same type in one transaction.
func (r *PostgresRegistry) Publish(ctx context.Context, params *models.ModelParameters) (uuid.UUID, error) {
	if params.ModelType == "" {
		return uuid.Nil, fmt.Errorf("publish: model type is required")
	}

	id := params.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	version := params.Version
	if version == "" {
		version = id.String()
	}

	strengths, err := json.Marshal(params.TeamStrengths)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode team strengths: %w", err)
	}

	tx, err := r.db.GetPool().Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Retire the current active version first so the partial unique index
	// on (model_type) WHERE state = 'active' never sees two rows.
	_, err = tx.Exec(ctx,
		`UPDATE model_parameters SET state = 'retired' WHERE model_type = $1 AND state = 'active'`,
		params.ModelType,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to retire previous version: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO model_parameters (id, model_type, version, team_strengths, home_advantage, rho, temperature, state, trained_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $8)
	`, id, params.ModelType, version, strengths, params.HomeAdvantage, params.Rho, params.Temperature, params.TrainedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert model parameters: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit publish: %w", err)
	}

	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// noRows reports whether err is pgx.ErrNoRows, however wrapped.
func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (r *PostgresRegistry) scanOne(row rowScanner) (*models.ModelParameters, error) {
	params := &models.ModelParameters{}
	var strengths []byte
	err := row.Scan(
		&params.ID, &params.ModelType, &params.Version, &strengths,
		&params.HomeAdvantage, &params.Rho, &params.Temperature,
		&params.State, &params.TrainedAt, &params.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(strengths) > 0 {
		if err := json.Unmarshal(strengths, &params.TeamStrengths); err != nil {
			return nil, fmt.Errorf("failed to decode team strengths: %w", err)
		}
	}
	return params, nil
}
