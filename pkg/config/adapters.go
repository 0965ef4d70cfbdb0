package config

import (
	"github.com/marmos91/dittorepo/internal/ratelimiter"
	"github.com/marmos91/dittorepo/pkg/adapter"
	"github.com/marmos91/dittorepo/pkg/api"
)

// CreateAdapters creates the network servers DittoServer runs: the API and,
// when enabled, the metrics endpoint.
//
// Object serving is turned on for every backend except s3, whose URLs are
// presigned and point at the bucket.
func CreateAdapters(cfg *Config, services *Services, m *MetricsResult) []adapter.Adapter {
	if m == nil {
		m = &MetricsResult{}
	}

	limiter, clientLimiter := CreateRateLimiters(&cfg.Server.RateLimit)

	handler := api.NewHandler(api.Config{
		BasePath:       cfg.API.BasePath,
		MaxUploadBytes: cfg.API.MaxUploadBytes,
		ServeObjects:   cfg.Store.Type != "s3",
		AllowedOrigins: cfg.API.AllowedOrigins,
	}, api.Dependencies{
		Manager:       services.Manager,
		Identity:      services.Identity,
		Store:         services.Store,
		Limiter:       limiter,
		ClientLimiter: clientLimiter,
		Metrics:       m.HTTP,
	})

	adapters := []adapter.Adapter{
		api.NewServer(api.ServerConfig{
			Port:            cfg.API.Port,
			ReadTimeout:     cfg.API.ReadTimeout,
			WriteTimeout:    cfg.API.WriteTimeout,
			IdleTimeout:     cfg.API.IdleTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, handler),
	}

	if m.Server != nil {
		adapters = append(adapters, m.Server)
	}

	return adapters
}

// CreateRateLimiters builds the global and per-client limiters. Both are nil
// when rate limiting is disabled, and each is nil when its rate is zero.
func CreateRateLimiters(cfg *RateLimitConfig) (*ratelimiter.RateLimiter, *ratelimiter.ClientLimiter) {
	if !cfg.Enabled {
		return nil, nil
	}

	var (
		limiter       *ratelimiter.RateLimiter
		clientLimiter *ratelimiter.ClientLimiter
	)
	if cfg.RequestsPerSecond > 0 {
		limiter = ratelimiter.New(cfg.RequestsPerSecond, cfg.Burst)
	}
	if cfg.PerClientRequestsPerSecond > 0 {
		clientLimiter = ratelimiter.NewClientLimiter(cfg.PerClientRequestsPerSecond, cfg.PerClientBurst, cfg.ClientIdleTimeout)
	}
	return limiter, clientLimiter
}
