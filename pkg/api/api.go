// Package api exposes repositories and accounts over HTTP.
//
// Every endpoint answers with the JSON envelope {success, message, data}.
// The envelope's success flag is authoritative; status codes follow the
// route table in NewHandler.
package api

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/marmos91/dittorepo/internal/ratelimiter"
	"github.com/marmos91/dittorepo/pkg/identity"
	"github.com/marmos91/dittorepo/pkg/objectstore"
	"github.com/marmos91/dittorepo/pkg/repository"
)

// Config configures the HTTP handler.
type Config struct {
	// BasePath prefixes every route. Default: "/api"
	BasePath string

	// MaxUploadBytes bounds the body of POST and PUT /repository.
	// Default: 32 MiB
	MaxUploadBytes int64

	// ServeObjects enables GET {BasePath}/objects/{key...}, which returns
	// raw object bytes. Only useful for backends whose URLs point back at
	// this server (memory, fs, badger).
	ServeObjects bool

	// AllowedOrigins lists the CORS origins. Default: ["*"]
	AllowedOrigins []string
}

const defaultMaxUploadBytes = 32 << 20

func (c *Config) applyDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	c.BasePath = "/" + strings.Trim(c.BasePath, "/")
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}

// Metrics records HTTP traffic. Implementations must be safe for concurrent
// use.
type Metrics interface {
	// ObserveRequest records a completed request. route is the mux pattern
	// without the method, so cardinality stays bounded.
	ObserveRequest(method, route string, status int, duration time.Duration)

	// RecordRateLimited counts a request rejected with 429.
	RecordRateLimited()
}

// Dependencies are the components the handlers call into.
//
// Manager and Identity are required. Store is required when ServeObjects is
// set. Limiter, ClientLimiter and Metrics are optional.
type Dependencies struct {
	Manager       *repository.Manager
	Identity      identity.Provider
	Store         objectstore.Store
	Limiter       *ratelimiter.RateLimiter
	ClientLimiter *ratelimiter.ClientLimiter
	Metrics       Metrics
}

type handler struct {
	config Config
	deps   Dependencies
}

// NewHandler builds the HTTP handler.
//
// Routes (relative to BasePath):
//
//	POST   /auth/register          201 | 400
//	POST   /auth/login             200 | 400
//	GET    /repository/{userId}    200 | 500
//	POST   /repository             201 | 400
//	PUT    /repository             201 | 400
//	DELETE /repository             200 | 500
//	GET    /objects/{key...}       200 | 404 (when ServeObjects is set)
//	GET    /health                 200
//
// Middleware runs outermost first: request logging, CORS, rate limiting.
// Per-route metrics wrap each handler.
func NewHandler(config Config, deps Dependencies) http.Handler {
	if deps.Manager == nil {
		panic("api: nil repository manager")
	}
	if deps.Identity == nil {
		panic("api: nil identity provider")
	}
	config.applyDefaults()
	if config.ServeObjects && deps.Store == nil {
		panic("api: ServeObjects requires an object store")
	}

	h := &handler{config: config, deps: deps}
	mux := http.NewServeMux()

	h.route(mux, http.MethodPost, "/auth/register", h.register)
	h.route(mux, http.MethodPost, "/auth/login", h.login)

	h.route(mux, http.MethodGet, "/repository/{userId}", h.listRepositories)
	h.route(mux, http.MethodPost, "/repository", h.createRepository)
	h.route(mux, http.MethodPut, "/repository", h.updateRepository)
	h.route(mux, http.MethodDelete, "/repository", h.deleteRepository)

	if config.ServeObjects {
		h.route(mux, http.MethodGet, "/objects/{key...}", h.getObject)
	}
	h.route(mux, http.MethodGet, "/health", h.health)

	var root http.Handler = mux
	root = rateLimit(root, deps.Limiter, deps.ClientLimiter, deps.Metrics)
	root = cors(root, config.AllowedOrigins)
	root = logRequests(root)
	return root
}

func (h *handler) route(mux *http.ServeMux, method, pattern string, fn http.HandlerFunc) {
	full := path.Join(h.config.BasePath, pattern)
	mux.Handle(method+" "+full, instrument(fn, full, h.deps.Metrics))
}
