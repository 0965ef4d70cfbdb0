// Package server runs DittoRepo's network adapters and owns the shutdown
// sequence.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/pkg/adapter"
	"go.uber.org/multierr"
)

// DittoServer manages the lifecycle of the adapters (API, metrics) that
// share one set of backend services.
//
// Lifecycle:
//  1. Creation: New() with the services to close on exit
//  2. Registration: AddAdapter() for each listener
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation or an adapter failure stops every
//     adapter in reverse order, then closes the services
//
// Thread safety:
// AddAdapter() may be called concurrently until Serve() is called. Serve()
// may only be called once.
//
// Example usage:
//
//	srv := server.New(services, cfg.Server.ShutdownTimeout)
//	for _, a := range config.CreateAdapters(cfg, services, metricsResult) {
//	    if err := srv.AddAdapter(a); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
type DittoServer struct {
	// services is closed once every adapter has stopped
	services io.Closer

	// stopTimeout bounds the Stop() calls issued during shutdown
	stopTimeout time.Duration

	// mu protects adapters
	mu       sync.RWMutex
	adapters []adapter.Adapter

	served atomic.Bool
}

// New creates a DittoServer. services may be nil; stopTimeout defaults to
// 30s.
func New(services io.Closer, stopTimeout time.Duration) *DittoServer {
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}

	return &DittoServer{
		services:    services,
		stopTimeout: stopTimeout,
		adapters:    make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter registers an adapter.
//
// Returns an error if another adapter already uses the same protocol name
// or port.
//
// Panics if a is nil or Serve() has already been called (programmer errors).
func (s *DittoServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}
	if s.served.Load() {
		panic("cannot add adapter after Serve() has been called")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter on port %d", protocol, port)

	return nil
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// Shutdown behavior:
//   - Every adapter receives Stop() in reverse registration order, bounded
//     by the stop timeout
//   - Serve() waits for every adapter goroutine to return
//   - The services are closed last
//
// Returns:
//   - context.Canceled (or the context's error) after a requested shutdown
//   - the adapter's error, wrapped, if an adapter failed
//   - an error if no adapter is registered
//
// Close errors of the services are appended to the returned error.
//
// Panics if called more than once.
func (s *DittoServer) Serve(ctx context.Context) error {
	if !s.served.CompareAndSwap(false, true) {
		panic("Serve() has already been called on this server instance")
	}

	s.mu.RLock()
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.RUnlock()

	if len(adapters) == 0 {
		return errors.New("no adapters registered; call AddAdapter() before Serve()")
	}

	err := s.serve(ctx, adapters)

	if s.services != nil {
		logger.Debug("Closing services")
		if closeErr := s.services.Close(); closeErr != nil {
			logger.Error("Failed to close services: %v", closeErr)
			err = multierr.Append(err, fmt.Errorf("closing services: %w", closeErr))
		}
	}

	logger.Info("DittoServer stopped")
	return err
}

func (s *DittoServer) serve(ctx context.Context, adapters []adapter.Adapter) error {
	logger.Info("Starting DittoServer with %d adapter(s)", len(adapters))

	// Buffered so failing adapters never block
	errChan := make(chan adapterError, len(adapters))

	// Adapters run under their own context so one failing adapter can stop
	// the others.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, a := range adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(runCtx)
			switch {
			case err != nil && runCtx.Err() == nil:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			case err != nil && !errors.Is(err, context.Canceled):
				logger.Warn("%s adapter stopped with error: %v", protocol, err)
			default:
				logger.Debug("%s adapter stopped", protocol)
			}
		}()
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	cancel()
	s.stopAllAdapters(adapters)

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters calls Stop() on every adapter in reverse registration
// order under one shared timeout. Errors are logged and do not interrupt
// the sequence.
func (s *DittoServer) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		a := adapters[i]
		logger.Debug("Stopping %s adapter (port %d)", a.Protocol(), a.Port())

		if err := a.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", a.Protocol(), err)
		}
	}
}

// Adapters returns a snapshot of the registered adapters.
func (s *DittoServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
