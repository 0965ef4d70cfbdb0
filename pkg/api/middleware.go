package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/internal/ratelimiter"
)

// MsgTooManyRequests is the envelope message of a rate-limited request.
const MsgTooManyRequests = "Too many requests."

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// logRequests tags each request with an ID and logs its outcome.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.code()
		switch {
		case status >= 500:
			logger.Warn("[%s] %s %s -> %d (%v)", requestID, r.Method, r.URL.Path, status, time.Since(start))
		default:
			logger.Debug("[%s] %s %s -> %d (%v)", requestID, r.Method, r.URL.Path, status, time.Since(start))
		}
	})
}

// cors sets the CORS headers and answers preflight requests.
func cors(next http.Handler, allowedOrigins []string) http.Handler {
	wildcard := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case originAllowed(origin, allowedOrigins):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// originAllowed matches exact origins and "*.example.com" style wildcards.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
		if domain, ok := strings.CutPrefix(a, "*."); ok && strings.HasSuffix(origin, "."+domain) {
			return true
		}
	}
	return false
}

// rateLimit rejects requests once the global or the per-client bucket is
// empty. Either limiter may be nil.
func rateLimit(next http.Handler, global *ratelimiter.RateLimiter, perClient *ratelimiter.ClientLimiter, metrics Metrics) http.Handler {
	if global == nil && perClient == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed := global == nil || global.Allow()
		if allowed && perClient != nil {
			allowed = perClient.Allow(clientKey(r))
		}

		if !allowed {
			if metrics != nil {
				metrics.RecordRateLimited()
			}
			w.Header().Set("Retry-After", "1")
			writeEnvelope(w, http.StatusTooManyRequests, failure(MsgTooManyRequests))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller by remote host.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// instrument reports every request of one route to metrics.
func instrument(next http.HandlerFunc, route string, metrics Metrics) http.Handler {
	if metrics == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next(rec, r)
		metrics.ObserveRequest(r.Method, route, rec.code(), time.Since(start))
	})
}
