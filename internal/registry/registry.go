// Package registry stores versioned model parameter sets and tracks the
// single active version per model type.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/match-predictor/internal/models"
)

// Registry is the model parameter store consumed by the prediction engine.
// Publish promotes the new set to active and atomically retires the prior
// active set of the same model type; readers always see either the old or the
// new set, never a half-written one.
type Registry interface {
	// GetActive returns the active parameter set for a model type, or
	// models.ErrNoActiveModel.
	GetActive(ctx context.Context, modelType string) (*models.ModelParameters, error)
	// GetVersion returns a specific version, or models.ErrNotFound.
	GetVersion(ctx context.Context, modelType, version string) (*models.ModelParameters, error)
	// Publish stores the parameter set as the new active version and
	// returns its ID.
	Publish(ctx context.Context, params *models.ModelParameters) (uuid.UUID, error)
}

// MemoryRegistry keeps parameter sets in process memory. Reads take the
// current active pointer under a read lock; Publish swaps the pointer, so
// concurrent evaluation needs no further coordination.
type MemoryRegistry struct {
	mu      sync.RWMutex
	active  map[string]*models.ModelParameters
	history map[string][]*models.ModelParameters
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		active:  make(map[string]*models.ModelParameters),
		history: make(map[string][]*models.ModelParameters),
	}
}

// GetActive returns the active parameter set for the model type.
func (r *MemoryRegistry) GetActive(ctx context.Context, modelType string) (*models.ModelParameters, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	params, ok := r.active[modelType]
	if !ok {
		return nil, fmt.Errorf("model type %s: %w", modelType, models.ErrNoActiveModel)
	}
	return params, nil
}

// GetVersion returns a specific stored version.
func (r *MemoryRegistry) GetVersion(ctx context.Context, modelType, version string) (*models.ModelParameters, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, params := range r.history[modelType] {
		if params.Version == version {
			return params, nil
		}
	}
	return nil, fmt.Errorf("model %s version %s: %w", modelType, version, models.ErrNotFound)
}

// Publish stores the parameter set and makes it the active version,
// retiring the previous one. The stored set is a copy marked active; the
// caller's struct is not mutated.
func (r *MemoryRegistry) Publish(ctx context.Context, params *models.ModelParameters) (uuid.UUID, error) {
	if params.ModelType == "" {
		return uuid.Nil, fmt.Errorf("publish: model type is required")
	}

	stored := *params
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.Version == "" {
		stored.Version = stored.ID.String()
	}
	stored.State = models.StateActive
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.active[stored.ModelType]; ok {
		retired := *prev
		retired.State = models.StateRetired
		r.replaceInHistory(&retired)
	}
	r.active[stored.ModelType] = &stored
	r.history[stored.ModelType] = append(r.history[stored.ModelType], &stored)

	return stored.ID, nil
}

func (r *MemoryRegistry) replaceInHistory(retired *models.ModelParameters) {
	list := r.history[retired.ModelType]
	for i, params := range list {
		if params.ID == retired.ID {
			list[i] = retired
			return
		}
	}
}
