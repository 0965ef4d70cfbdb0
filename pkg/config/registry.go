package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/pkg/identity"
	"github.com/marmos91/dittorepo/pkg/objectstore"
	"github.com/marmos91/dittorepo/pkg/repository"
	"go.uber.org/multierr"
)

// Services holds the long-lived components built from configuration.
type Services struct {
	// Store is the object store, instrumented when metrics are enabled
	Store objectstore.Store

	// Identity is the account backend
	Identity identity.Provider

	// Manager implements the repository operations on Store
	Manager *repository.Manager
}

// InitializeServices creates the object store, the identity provider and the
// repository manager.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	services, err := config.InitializeServices(ctx, cfg, config.InitializeMetrics(cfg))
//	if err != nil {
//	    log.Fatalf("Failed to initialize services: %v", err)
//	}
//	defer services.Close()
func InitializeServices(ctx context.Context, cfg *Config, m *MetricsResult) (*Services, error) {
	logger.Debug("Initializing services from configuration")

	if m == nil {
		m = &MetricsResult{}
	}

	store, err := CreateObjectStore(ctx, &cfg.Store, cfg.API.ObjectsBaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}
	store = objectstore.Instrument(store, m.ObjectStore)

	provider, err := CreateIdentityProvider(ctx, &cfg.Identity)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create identity provider: %w", err)
	}

	manager := repository.NewManager(store, repository.Config{
		MaxConcurrency:          cfg.Repository.MaxConcurrency,
		MaxTreeDepth:            cfg.Repository.MaxTreeDepth,
		CompensateFailedUploads: cfg.Repository.CompensateFailedUploads,
	}, m.Repository)

	logger.Debug("Services ready: store=%s identity=%s", cfg.Store.Type, cfg.Identity.Type)

	return &Services{Store: store, Identity: provider, Manager: manager}, nil
}

// Close releases the store and the identity provider, returning every
// failure.
func (s *Services) Close() error {
	return multierr.Combine(s.Store.Close(), s.Identity.Close())
}
