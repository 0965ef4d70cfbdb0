package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"LogLevel", func(c *Config) { c.Logging.Level = "INVALID" }, "oneof"},
		{"LogFormat", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"ShutdownTimeout", func(c *Config) { c.Server.ShutdownTimeout = -1 }, "gt"},
		{"APIPort", func(c *Config) { c.API.Port = 70000 }, "max"},
		{"BasePath", func(c *Config) { c.API.BasePath = "api" }, "startswith"},
		{"PublicURL", func(c *Config) { c.API.PublicURL = "not a url" }, "url"},
		{"MaxUploadBytes", func(c *Config) { c.API.MaxUploadBytes = -1 }, "gt"},
		{"NoOrigins", func(c *Config) { c.API.AllowedOrigins = nil }, "min"},
		{"StoreType", func(c *Config) { c.Store.Type = "ftp" }, "oneof"},
		{"IdentityType", func(c *Config) { c.Identity.Type = "ldap" }, "oneof"},
		{"MaxConcurrency", func(c *Config) { c.Repository.MaxConcurrency = 0 }, "gt"},
		{"MaxTreeDepth", func(c *Config) { c.Repository.MaxTreeDepth = -3 }, "gt"},
		{"MetricsPortClash", func(c *Config) {
			c.Server.Metrics.Enabled = true
			c.Server.Metrics.Port = c.API.Port
		}, "already used"},
		{"S3WithoutBucket", func(c *Config) { c.Store.Type = "s3" }, "bucket"},
		{"RateLimitWithoutRates", func(c *Config) {
			c.Server.RateLimit.Enabled = true
			c.Server.RateLimit.RequestsPerSecond = 0
			c.Server.RateLimit.PerClientRequestsPerSecond = 0
		}, "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_LowercaseLevelAccepted(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "debug"

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected lowercase level to be accepted, got: %v", err)
	}
}

func TestValidate_S3WithBucket(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "s3"
	cfg.Store.S3["bucket"] = "repos"

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected s3 config with bucket to pass, got: %v", err)
	}
}
