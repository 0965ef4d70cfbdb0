package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete DittoRepo configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOREPO_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// Store Configuration Pattern:
// Each backend defines its own options. The Store and Identity sections hold
// one map per backend type and only the map matching the selected type is
// decoded (see factories.go).
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains process-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// API configures the HTTP API listener
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Store selects and configures the object store
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Repository tunes the repository manager
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`

	// Identity selects and configures the account backend
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// RateLimit throttles API requests
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// MetricsConfig configures Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns on collection and the metrics HTTP server
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port of the metrics HTTP server
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// RateLimitConfig configures token-bucket throttling of the API.
//
// The global bucket is shared by all clients; the per-client buckets are
// keyed by remote address. A zero rate disables the corresponding bucket.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             uint `mapstructure:"burst" yaml:"burst"`

	PerClientRequestsPerSecond uint `mapstructure:"per_client_requests_per_second" yaml:"per_client_requests_per_second"`
	PerClientBurst             uint `mapstructure:"per_client_burst" yaml:"per_client_burst"`

	// ClientIdleTimeout drops the bucket of a client idle for this long
	ClientIdleTimeout time.Duration `mapstructure:"client_idle_timeout" yaml:"client_idle_timeout"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	// Port to listen on
	Port int `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`

	// BasePath prefixes every route
	BasePath string `mapstructure:"base_path" yaml:"base_path" validate:"required,startswith=/"`

	// PublicURL is the externally visible address of the API. Object URLs of
	// the memory, filesystem and badger stores point at
	// {PublicURL}{BasePath}/objects/.
	PublicURL string `mapstructure:"public_url" yaml:"public_url" validate:"required,url"`

	// MaxUploadBytes bounds a POST or PUT /repository body
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" validate:"gt=0"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"gt=0"`

	// AllowedOrigins lists the CORS origins ("*" allows all)
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins" validate:"min=1"`
}

// ObjectsBaseURL returns the address prefix of object URLs served by the API.
func (c *APIConfig) ObjectsBaseURL() string {
	return strings.TrimSuffix(c.PublicURL, "/") + "/" + strings.Trim(c.BasePath, "/") + "/objects"
}

// StoreConfig specifies the object store.
//
// The Type field determines which implementation is used. Only the
// corresponding type-specific section is read.
type StoreConfig struct {
	// Type specifies which object store implementation to use
	// Valid values: memory, filesystem, badger, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem badger s3"`

	// Memory has no options yet; the section is kept for symmetry
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Filesystem options: path
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`

	// Badger options: db_path, block_cache_size_mb
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// S3 options: region, bucket, key_prefix, endpoint, access_key_id,
	// secret_access_key, max_retries, url_expiry
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// RepositoryConfig tunes the repository manager.
type RepositoryConfig struct {
	// MaxConcurrency bounds concurrent store calls per batch or tree level
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency" validate:"gt=0"`

	// MaxTreeDepth bounds how deep listings descend
	MaxTreeDepth int `mapstructure:"max_tree_depth" yaml:"max_tree_depth" validate:"gt=0"`

	// CompensateFailedUploads deletes the partial upload of a failed create
	CompensateFailedUploads bool `mapstructure:"compensate_failed_uploads" yaml:"compensate_failed_uploads"`
}

// IdentityConfig specifies the account backend.
type IdentityConfig struct {
	// Type specifies which provider to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Badger options: db_path
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DITTOREPO_ prefix and underscores
	// Example: DITTOREPO_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOREPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans whose default is true cannot be told apart from an explicit
	// false after unmarshalling, so they are defaulted here.
	v.SetDefault("repository.compensate_failed_uploads", true)

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/dittorepo/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// envKeys are the scalar settings that can be overridden from the
// environment without appearing in the config file.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"server.shutdown_timeout",
	"server.metrics.enabled",
	"server.metrics.port",
	"api.port",
	"api.base_path",
	"api.public_url",
	"api.max_upload_bytes",
	"store.type",
	"identity.type",
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// No config file is acceptable; defaults apply
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittorepo")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittorepo")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
