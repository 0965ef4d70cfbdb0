package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults, not here. Validation
// accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs validation that cannot be expressed in tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == cfg.API.Port {
		return fmt.Errorf("server.metrics.port: %d is already used by api.port", cfg.Server.Metrics.Port)
	}

	if cfg.Store.Type == "s3" {
		if bucket, _ := cfg.Store.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("store.s3.bucket: required when store.type is s3")
		}
	}

	rl := cfg.Server.RateLimit
	if rl.Enabled && rl.RequestsPerSecond == 0 && rl.PerClientRequestsPerSecond == 0 {
		return fmt.Errorf("server.rate_limit: enabled but both rates are zero")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
