package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultConfigYAML is written by InitConfig. Its values mirror
// GetDefaultConfig.
const defaultConfigYAML = `# DittoRepo Configuration File
#
# Every setting can be overridden with an environment variable named after
# its path, e.g. DITTOREPO_LOGGING_LEVEL=DEBUG or DITTOREPO_STORE_TYPE=s3.

logging:
  # DEBUG, INFO, WARN or ERROR
  level: INFO
  # text or json
  format: text
  # stdout, stderr or a file path
  output: stdout

server:
  shutdown_timeout: 30s

  metrics:
    enabled: false
    port: 9090

  rate_limit:
    enabled: false
    # Shared by all clients
    requests_per_second: 500
    burst: 1000
    # Per remote address
    per_client_requests_per_second: 20
    per_client_burst: 40
    client_idle_timeout: 10m

api:
  port: 3001
  base_path: /api
  # Object URLs of the memory, filesystem and badger stores point at
  # {public_url}{base_path}/objects/
  public_url: http://localhost:3001
  max_upload_bytes: 33554432
  read_timeout: 5m
  write_timeout: 5m
  idle_timeout: 2m
  allowed_origins:
    - "*"

store:
  # memory, filesystem, badger or s3
  type: filesystem

  memory: {}

  filesystem:
    path: /tmp/dittorepo/objects

  badger:
    db_path: /tmp/dittorepo/objects.db

  s3:
    region: us-east-1
    # bucket: my-repositories
    # key_prefix: dittorepo/
    # endpoint: http://localhost:4566
    # access_key_id: ""
    # secret_access_key: ""
    # Lifetime of presigned download URLs
    url_expiry: 1h

repository:
  # Concurrent store calls per upload batch or tree level
  max_concurrency: 16
  # Deeper folders are left out of listings
  max_tree_depth: 64
  # Remove the files of a create that failed half-way
  compensate_failed_uploads: true

identity:
  # memory or badger
  type: badger

  badger:
    db_path: /tmp/dittorepo/accounts.db
`

// InitConfig writes the default configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
