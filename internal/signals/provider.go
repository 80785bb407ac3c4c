// Package signals collects structural match signals from pluggable providers.
package signals

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/match-predictor/internal/models"
)

// Reading is a provider's answer for a single signal kind. Absent readings
// carry no value and are excluded from blending.
type Reading struct {
	Signal  models.StructuralSignal
	Present bool
}

// Present wraps a signal value as an available reading.
func Present(kind models.SignalKind, value, confidence float64) Reading {
	return Reading{
		Signal:  models.StructuralSignal{Kind: kind, Value: value, Confidence: confidence},
		Present: true,
	}
}

// Absent marks a signal kind as unavailable.
func Absent(kind models.SignalKind) Reading {
	return Reading{Signal: models.StructuralSignal{Kind: kind}}
}

// Provider supplies structural signal readings for a fixture.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, fixture *models.Fixture) ([]Reading, error)
}

// Chain queries providers in order. The first present reading per signal kind
// wins; provider errors degrade to absent signals rather than failing the
// evaluation.
type Chain struct {
	providers []Provider
	logger    *logrus.Logger
}

// NewChain creates a provider chain. Order determines precedence.
func NewChain(logger *logrus.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// Collect gathers the present signals for a fixture.
func (c *Chain) Collect(ctx context.Context, fixture *models.Fixture) []models.StructuralSignal {
	seen := make(map[models.SignalKind]bool)
	var collected []models.StructuralSignal

	for _, provider := range c.providers {
		readings, err := provider.Fetch(ctx, fixture)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"provider": provider.Name(),
				"home":     fixture.HomeTeam,
				"away":     fixture.AwayTeam,
			}).WithError(err).Warn("Signal provider failed, continuing without it")
			continue
		}

		for _, reading := range readings {
			if !reading.Present || seen[reading.Signal.Kind] {
				continue
			}
			seen[reading.Signal.Kind] = true
			collected = append(collected, reading.Signal)
		}
	}

	return collected
}

// StaticProvider serves fixed readings, used for tests and CLI-supplied
// overrides.
type StaticProvider struct {
	name     string
	readings []Reading
}

// NewStaticProvider creates a provider returning the same readings for every
// fixture.
func NewStaticProvider(name string, readings ...Reading) *StaticProvider {
	return &StaticProvider{name: name, readings: readings}
}

// Name identifies the provider in logs.
func (p *StaticProvider) Name() string { return p.name }

// Fetch returns the configured readings.
func (p *StaticProvider) Fetch(_ context.Context, _ *models.Fixture) ([]Reading, error) {
	return p.readings, nil
}
