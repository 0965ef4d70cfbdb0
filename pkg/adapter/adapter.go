// Package adapter defines the contract between DittoRepo's server lifecycle
// and the network listeners it runs.
package adapter

import "context"

// Adapter is a network server managed by DittoServer: the repository API
// and the metrics endpoint are both adapters.
//
// Lifecycle:
//  1. Creation: the adapter is built with its handler and configuration
//  2. Startup: Serve() starts listening and blocks until shutdown
//  3. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Stop() may be called concurrently with Serve() and more than once.
type Adapter interface {
	// Serve starts the server and blocks until the context is cancelled or
	// an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must stop accepting connections,
	// drain in-flight requests and return nil.
	//
	// If Serve returns before context cancellation, DittoServer treats it as
	// a fatal error and stops all other adapters.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown. It must be idempotent and respect
	// the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns a human-readable name for logging, e.g. "HTTP API".
	Protocol() string

	// Port returns the TCP port the adapter listens on.
	Port() int
}
