package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans defaulting to true are handled by viper (see setupViper)
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyAPIDefaults(&cfg.API)
	applyStoreDefaults(&cfg.Store)
	applyRepositoryDefaults(&cfg.Repository)
	applyIdentityDefaults(&cfg.Identity)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server, metrics and rate limit defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}

	rl := &cfg.RateLimit
	if rl.RequestsPerSecond == 0 {
		rl.RequestsPerSecond = 500
	}
	if rl.Burst == 0 {
		rl.Burst = 2 * rl.RequestsPerSecond
	}
	if rl.PerClientRequestsPerSecond == 0 {
		rl.PerClientRequestsPerSecond = 20
	}
	if rl.PerClientBurst == 0 {
		rl.PerClientBurst = 2 * rl.PerClientRequestsPerSecond
	}
	if rl.ClientIdleTimeout == 0 {
		rl.ClientIdleTimeout = 10 * time.Minute
	}
}

// applyAPIDefaults sets HTTP API defaults.
func applyAPIDefaults(cfg *APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 3001
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/api"
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:3001"
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 32 << 20 // 32MB
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
}

// applyStoreDefaults sets object store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	// Defaults for every backend so a generated file documents them all
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "/tmp/dittorepo/objects"
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/dittorepo/objects.db"
	}
	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = "us-east-1"
	}
	if _, ok := cfg.S3["url_expiry"]; !ok {
		cfg.S3["url_expiry"] = "1h"
	}
}

// applyRepositoryDefaults sets repository manager defaults.
func applyRepositoryDefaults(cfg *RepositoryConfig) {
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 16
	}
	if cfg.MaxTreeDepth == 0 {
		cfg.MaxTreeDepth = 64
	}
}

// applyIdentityDefaults sets identity provider defaults.
func applyIdentityDefaults(cfg *IdentityConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/dittorepo/accounts.db"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Repository: RepositoryConfig{
			CompensateFailedUploads: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
