// Package config provides configuration management for the match predictor.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/match-predictor/internal/engine"
	"github.com/yourusername/match-predictor/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Training  TrainingConfig  `mapstructure:"training" validate:"required"`
	Blending  BlendingConfig  `mapstructure:"blending" validate:"required"`
	Signals   SignalsConfig   `mapstructure:"signals" validate:"required"`
	Metrics   MetricsConfig   `mapstructure:"metrics" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// TrainingConfig holds the strength estimation and calibration tunables.
type TrainingConfig struct {
	HalfLifeDays    float64 `mapstructure:"half_life_days" validate:"required,halflife"`
	MaxAgeDays      float64 `mapstructure:"max_age_days" validate:"gte=0"`
	Epsilon         float64 `mapstructure:"epsilon" validate:"required,gt=0"`
	MaxIterations   int     `mapstructure:"max_iterations" validate:"required,gt=0"`
	MinTeams        int     `mapstructure:"min_teams" validate:"required,gte=2"`
	MinMatches      float64 `mapstructure:"min_matches" validate:"required,gt=0"`
	RhoMin          float64 `mapstructure:"rho_min" validate:"gte=-1,lte=0"`
	RhoMax          float64 `mapstructure:"rho_max" validate:"gte=0,lte=1"`
	HomeAdvantage   float64 `mapstructure:"home_advantage" validate:"gte=-1,lte=1"`
	MaxGoals        int     `mapstructure:"max_goals" validate:"required,min=5,max=25"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	HoldoutFraction float64 `mapstructure:"holdout_fraction" validate:"gte=0,lt=1"`
}

// BlendingConfig holds the structural signal blender tunables.
type BlendingConfig struct {
	MaxDrawDelta       float64            `mapstructure:"max_draw_delta" validate:"required,gt=0,lte=0.25"`
	ReferenceDrawRate  float64            `mapstructure:"reference_draw_rate" validate:"required,gt=0,lt=1"`
	H2HShrinkCount     float64            `mapstructure:"h2h_shrink_count" validate:"gte=0"`
	EloGapScale        float64            `mapstructure:"elo_gap_scale" validate:"required,gt=0"`
	RestDiffScale      float64            `mapstructure:"rest_diff_scale" validate:"required,gt=0"`
	InjuryScale        float64            `mapstructure:"injury_scale" validate:"required,gt=0"`
	InjurySideShiftMax float64            `mapstructure:"injury_side_shift_max" validate:"gte=0,lte=0.25"`
	Weights            map[string]float64 `mapstructure:"weights"`
}

// SignalsConfig configures the structural signal provider chain.
type SignalsConfig struct {
	Endpoint           string  `mapstructure:"endpoint" validate:"omitempty,url"`
	APIKey             string  `mapstructure:"api_key"`
	TimeoutSeconds     int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts      int     `mapstructure:"retry_attempts" validate:"gte=0"`
	CacheTTLSeconds    int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// SchedulerConfig configures the periodic retraining job.
type SchedulerConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	RetrainCron string   `mapstructure:"retrain_cron"`
	Leagues     []string `mapstructure:"leagues"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// TrainingTimeout returns the wall-clock limit for a training run, or zero
// when unbounded.
func (c *TrainingConfig) TrainingTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EstimatorConfig maps the training section onto the engine tunables.
func (c *TrainingConfig) EstimatorConfig() engine.EstimatorConfig {
	return engine.EstimatorConfig{
		HalfLifeDays:  c.HalfLifeDays,
		MaxAgeDays:    c.MaxAgeDays,
		Epsilon:       c.Epsilon,
		MaxIterations: c.MaxIterations,
		MinTeams:      c.MinTeams,
		MinMatches:    c.MinMatches,
		RhoMin:        c.RhoMin,
		RhoMax:        c.RhoMax,
		HomeAdvantage: c.HomeAdvantage,
	}
}

// BlenderConfig maps the blending section onto the engine tunables. Unset
// weights fall back to the engine defaults.
func (c *BlendingConfig) BlenderConfig() engine.BlenderConfig {
	cfg := engine.DefaultBlenderConfig()
	cfg.MaxDrawDelta = c.MaxDrawDelta
	cfg.ReferenceDrawRate = c.ReferenceDrawRate
	cfg.H2HShrinkCount = c.H2HShrinkCount
	cfg.EloGapScale = c.EloGapScale
	cfg.RestDiffScale = c.RestDiffScale
	cfg.InjuryScale = c.InjuryScale
	cfg.InjurySideShiftMax = c.InjurySideShiftMax
	if len(c.Weights) > 0 {
		weights := make(map[models.SignalKind]float64, len(c.Weights))
		for kind, w := range c.Weights {
			weights[models.SignalKind(kind)] = w
		}
		cfg.Weights = weights
	}
	return cfg
}

// CacheTTL returns the signal cache lifetime.
func (c *SignalsConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Timeout returns the per-request timeout for signal providers.
func (c *SignalsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
