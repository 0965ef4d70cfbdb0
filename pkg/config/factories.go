package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/pkg/identity"
	identityBadger "github.com/marmos91/dittorepo/pkg/identity/badger"
	identityMemory "github.com/marmos91/dittorepo/pkg/identity/memory"
	"github.com/marmos91/dittorepo/pkg/objectstore"
	storeBadger "github.com/marmos91/dittorepo/pkg/objectstore/badger"
	storeFs "github.com/marmos91/dittorepo/pkg/objectstore/fs"
	storeMemory "github.com/marmos91/dittorepo/pkg/objectstore/memory"
	storeS3 "github.com/marmos91/dittorepo/pkg/objectstore/s3"
	"github.com/mitchellh/mapstructure"
)

// decodeOptions decodes a backend option map into out. Durations may be
// given as strings ("1h") and numbers may arrive as strings from the
// environment.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// CreateObjectStore creates an object store based on configuration.
//
// Supported types:
//   - "memory": volatile in-process store
//   - "filesystem": files below a local directory
//   - "badger": embedded BadgerDB database
//   - "s3": Amazon S3 or a compatible service
//
// baseURL is the address prefix of object URLs for the local backends,
// typically APIConfig.ObjectsBaseURL(). S3 hands out presigned URLs instead.
func CreateObjectStore(ctx context.Context, cfg *StoreConfig, baseURL string) (objectstore.Store, error) {
	switch cfg.Type {
	case "memory":
		store, err := storeMemory.NewMemoryObjectStore(ctx, baseURL)
		if err != nil {
			return nil, err
		}
		logger.Warn("Using in-memory object store: repositories will not survive a restart")
		return store, nil
	case "filesystem":
		return createFilesystemObjectStore(ctx, cfg.Filesystem, baseURL)
	case "badger":
		return createBadgerObjectStore(ctx, cfg.Badger, baseURL)
	case "s3":
		return createS3ObjectStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown object store type: %q (supported: memory, filesystem, badger, s3)", cfg.Type)
	}
}

// createFilesystemObjectStore creates a filesystem-based object store.
func createFilesystemObjectStore(ctx context.Context, options map[string]any, baseURL string) (objectstore.Store, error) {
	type FilesystemObjectStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemObjectStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem object store config: %w", err)
	}
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem object store: path is required")
	}

	store, err := storeFs.NewOSObjectStore(ctx, storeCfg.Path, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem object store: %w", err)
	}

	logger.Info("Filesystem object store initialized: path=%s", storeCfg.Path)
	return store, nil
}

// createBadgerObjectStore creates a BadgerDB-backed object store.
func createBadgerObjectStore(ctx context.Context, options map[string]any, baseURL string) (objectstore.Store, error) {
	type BadgerOptions struct {
		DBPath           string `mapstructure:"db_path"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_size_mb"`
	}

	var opts BadgerOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger object store options: %w", err)
	}
	if opts.DBPath == "" {
		return nil, fmt.Errorf("badger object store: db_path is required")
	}

	store, err := storeBadger.NewBadgerObjectStore(ctx, storeBadger.BadgerObjectStoreConfig{
		DBPath:           opts.DBPath,
		BaseURL:          baseURL,
		BlockCacheSizeMB: opts.BlockCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger object store: %w", err)
	}

	logger.Info("Badger object store initialized: db_path=%s", opts.DBPath)
	return store, nil
}

// createS3ObjectStore creates an S3-based object store.
func createS3ObjectStore(ctx context.Context, options map[string]any) (objectstore.Store, error) {
	type S3ObjectStoreOptions struct {
		Region          string        `mapstructure:"region"`
		Bucket          string        `mapstructure:"bucket"`
		KeyPrefix       string        `mapstructure:"key_prefix"`
		Endpoint        string        `mapstructure:"endpoint"`
		AccessKeyID     string        `mapstructure:"access_key_id"`
		SecretAccessKey string        `mapstructure:"secret_access_key"`
		MaxRetries      int           `mapstructure:"max_retries"`
		URLExpiry       time.Duration `mapstructure:"url_expiry"`
	}

	var storeCfg S3ObjectStoreOptions
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 object store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 object store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 object store: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(storeCfg.Region),
	}

	// Static credentials if provided, otherwise the default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storeCfg.AccessKeyID, storeCfg.SecretAccessKey, ""),
		))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO, Localstack and friends need a custom endpoint and path-style
		// addressing.
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Object Store
	// ========================================================================

	store, err := storeS3.NewS3ObjectStore(ctx, storeS3.S3ObjectStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		URLExpiry: storeCfg.URLExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 object store: %w", err)
	}

	logger.Info("S3 object store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateIdentityProvider creates the account backend based on configuration.
//
// Supported types:
//   - "memory": accounts are lost on restart
//   - "badger": accounts persist in a BadgerDB database
func CreateIdentityProvider(ctx context.Context, cfg *IdentityConfig) (identity.Provider, error) {
	switch cfg.Type {
	case "memory":
		logger.Warn("Using in-memory identity provider: accounts will not survive a restart")
		return identityMemory.NewMemoryProvider(), nil
	case "badger":
		return createBadgerIdentityProvider(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown identity provider type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createBadgerIdentityProvider creates a BadgerDB-backed identity provider.
func createBadgerIdentityProvider(ctx context.Context, options map[string]any) (identity.Provider, error) {
	type BadgerOptions struct {
		DBPath string `mapstructure:"db_path"`
	}

	var opts BadgerOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger identity options: %w", err)
	}
	if opts.DBPath == "" {
		return nil, fmt.Errorf("badger identity provider: db_path is required")
	}

	provider, err := identityBadger.NewBadgerProvider(ctx, identityBadger.BadgerProviderConfig{DBPath: opts.DBPath})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger identity provider: %w", err)
	}

	logger.Info("Badger identity provider initialized: db_path=%s", opts.DBPath)
	return provider, nil
}
