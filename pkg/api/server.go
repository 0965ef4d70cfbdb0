package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/dittorepo/internal/logger"
)

// ServerConfig configures the API HTTP listener.
type ServerConfig struct {
	// Port to listen on. Zero picks a free port (see Server.Addr).
	Port int

	// ReadTimeout bounds reading a whole request, uploads included.
	// Default: 5m
	ReadTimeout time.Duration

	// WriteTimeout bounds writing a response. Default: 5m
	WriteTimeout time.Duration

	// IdleTimeout bounds keep-alive connections. Default: 2m
	IdleTimeout time.Duration

	// ShutdownTimeout bounds draining in-flight requests. Default: 30s
	ShutdownTimeout time.Duration
}

func (c *ServerConfig) applyDefaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Server runs the API handler as an adapter.Adapter.
type Server struct {
	server          *http.Server
	port            int
	shutdownTimeout time.Duration
	shutdownOnce    sync.Once

	// listening is closed once the listener is bound; addr is set before.
	listening chan struct{}
	addr      net.Addr
}

// NewServer creates a stopped API server. Call Serve to start it.
func NewServer(config ServerConfig, handler http.Handler) *Server {
	config.applyDefaults()

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           handler,
			ReadTimeout:       config.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
		},
		port:            config.Port,
		shutdownTimeout: config.ShutdownTimeout,
		listening:       make(chan struct{}),
	}
}

// Serve listens on the configured port and blocks until ctx is cancelled or
// the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	s.addr = listener.Addr()
	close(s.listening)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening on %s", listener.Addr())
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error: %v", err)
			return
		}
		logger.Info("API server stopped gracefully")
	})
	return shutdownErr
}

// Protocol implements adapter.Adapter.
func (s *Server) Protocol() string {
	return "HTTP API"
}

// Port implements adapter.Adapter.
func (s *Server) Port() int {
	return s.port
}

// Addr blocks until the listener is bound and returns its address. It is
// meant for tests that listen on an ephemeral port.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.listening:
		return s.addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
