package config

import (
	"github.com/marmos91/dittorepo/pkg/api"
	"github.com/marmos91/dittorepo/pkg/metrics"
	"github.com/marmos91/dittorepo/pkg/objectstore"
	"github.com/marmos91/dittorepo/pkg/repository"
)

// MetricsResult contains all metrics-related components created from configuration.
//
// Every collector is nil when metrics are disabled; consumers treat a nil
// collector as "do not record".
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	ObjectStore objectstore.Metrics
	Repository  repository.Metrics
	HTTP        api.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled the global Prometheus registry is initialized and
// Prometheus-backed collectors are created for every component.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Server.Metrics.Port,
		}),
		ObjectStore: metrics.NewObjectStoreMetrics(),
		Repository:  metrics.NewRepositoryMetrics(),
		HTTP:        metrics.NewHTTPMetrics(),
	}
}
