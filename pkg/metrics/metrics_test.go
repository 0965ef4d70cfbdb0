package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marmos91/dittorepo/pkg/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newObjectStoreMetrics(reg)

	m.ObserveOperation("put", time.Millisecond, nil)
	m.ObserveOperation("put", time.Millisecond, errors.New("boom"))
	m.RecordBytes("put", 42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("put", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("put", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("put")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("put")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
}

func TestRepositoryMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newRepositoryMetrics(reg)

	m.ObserveOperation("create", repository.KindNone, time.Millisecond)
	m.ObserveOperation("create", repository.KindConflict, time.Millisecond)
	m.RecordFiles("create", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "conflict")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.filesTotal.WithLabelValues("create")))
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newHTTPMetrics(reg)

	m.ObserveRequest(http.MethodGet, "/api/repository/{userId}", http.StatusOK, time.Millisecond)
	m.RecordRateLimited()
	m.RecordRateLimited()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/api/repository/{userId}", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rateLimited))
}

func TestConstructorsDisabled(t *testing.T) {
	if IsEnabled() {
		t.Skip("global registry already initialized")
	}

	assert.Nil(t, NewObjectStoreMetrics())
	assert.Nil(t, NewRepositoryMetrics())
	assert.Nil(t, NewHTTPMetrics())

	rec := httptest.NewRecorder()
	Handler(9090).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerEnabled(t *testing.T) {
	InitRegistry()
	require.True(t, IsEnabled())

	rec := httptest.NewRecorder()
	Handler(9090).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = httptest.NewRecorder()
	Handler(9090).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/metrics")
}
