// Package config provides configuration management for the match predictor.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("halflife", validateHalfLife)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	env := fl.Field().String()
	switch env {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateHalfLife requires a strictly positive, finite decay half-life.
func validateHalfLife(fl validator.FieldLevel) bool {
	halfLife := fl.Field().Float()
	return halfLife > 0 && halfLife < 1e6
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Training.RhoMin >= cfg.Training.RhoMax {
		return fmt.Errorf("training rho_min must be below rho_max")
	}

	if cfg.Training.MaxAgeDays > 0 && cfg.Training.MaxAgeDays < cfg.Training.HalfLifeDays {
		return fmt.Errorf("training max_age_days cannot be shorter than half_life_days")
	}

	for kind, weight := range cfg.Blending.Weights {
		if weight < 0 {
			return fmt.Errorf("blending weight for signal %q must not be negative", kind)
		}
	}

	if cfg.Scheduler.Enabled {
		if cfg.Scheduler.RetrainCron == "" {
			return fmt.Errorf("scheduler retrain_cron is required when the scheduler is enabled")
		}
		if _, err := cron.ParseStandard(cfg.Scheduler.RetrainCron); err != nil {
			return fmt.Errorf("invalid scheduler retrain_cron %q: %w", cfg.Scheduler.RetrainCron, err)
		}
		if len(cfg.Scheduler.Leagues) == 0 {
			return fmt.Errorf("scheduler requires at least one league when enabled")
		}
	}

	if cfg.IsProduction() {
		if cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "halflife":
			errMsg += fmt.Sprintf("- Field '%s' must be a positive number of days\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
