// Package config provides configuration management for the F1 winner pipeline.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/yourusername/f1-winner/internal/models"
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
	_ = v.RegisterValidation("formscope", validateFormScope)
	_ = v.RegisterValidation("sessions", validateSessions)
	_ = v.RegisterValidation("schedule", validateSchedule)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateFormScope accepts "season" (same-season history only) or "all" (cross-season)
func validateFormScope(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case FormScopeSeason, FormScopeAll:
		return true
	default:
		return false
	}
}

func validateSessions(fl validator.FieldLevel) bool {
	sessions, ok := fl.Field().Interface().([]string)
	if !ok || len(sessions) == 0 {
		return false
	}
	for _, s := range sessions {
		if _, ok := models.ParseSessionKind(s); !ok {
			return false
		}
	}
	return true
}

func validateSchedule(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// Form scope values
const (
	FormScopeSeason = "season"
	FormScopeAll    = "all"
)

func validateCrossField(cfg *Config) error {
	w := cfg.Features.QualifyingWeights
	if w.Grid+w.Stage+w.Pace <= 0 {
		return fmt.Errorf("features.qualifying_weights must have a positive sum")
	}

	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	for _, season := range cfg.Pipeline.HistorySeasons {
		if season > cfg.Pipeline.TargetSeason {
			return fmt.Errorf("history season %d is after target season %d", season, cfg.Pipeline.TargetSeason)
		}
	}

	if cfg.Features.FormMinSamples > cfg.Features.FormWindow {
		return fmt.Errorf("form_min_samples cannot exceed form_window")
	}
	if cfg.Features.TeamMinSamples > cfg.Features.TeamWindow {
		return fmt.Errorf("team_min_samples cannot exceed team_window")
	}

	return nil
}

func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "formscope":
			fmt.Fprintf(&b, "- Field '%s' must be one of: season, all\n", field)
		case "sessions":
			fmt.Fprintf(&b, "- Field '%s' contains an unknown session kind: %v\n", field, value)
		case "schedule":
			fmt.Fprintf(&b, "- Field '%s' must be a standard cron expression, got '%v'\n", field, value)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}

// isTestCredential checks if a credential looks like a placeholder
func isTestCredential(credential string) bool {
	for _, pattern := range []string{"test", "demo", "example", "placeholder", "YOUR_"} {
		if match, _ := regexp.MatchString("(?i)"+pattern, credential); match {
			return true
		}
	}
	return false
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() && isTestCredential(cfg.Database.Password) {
		return fmt.Errorf("production environment should not use placeholder database credentials")
	}
	return nil
}
