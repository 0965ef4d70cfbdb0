package metrics

import (
	"time"

	"github.com/marmos91/dittorepo/pkg/objectstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// objectStoreMetrics is the Prometheus implementation of objectstore.Metrics.
type objectStoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	bytesTransferred  *prometheus.CounterVec
}

// NewObjectStoreMetrics creates Prometheus-backed object store metrics.
//
// Returns nil if metrics are not enabled, which makes objectstore.Instrument
// return the store unchanged.
func NewObjectStoreMetrics() objectstore.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newObjectStoreMetrics(GetRegistry())
}

func newObjectStoreMetrics(reg prometheus.Registerer) *objectStoreMetrics {
	return &objectStoreMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "objectstore",
				Name:      "operations_total",
				Help:      "Total number of object store operations by operation type and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "objectstore",
				Name:      "operation_duration_seconds",
				Help:      "Duration of object store operations in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"operation"},
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "objectstore",
				Name:      "errors_total",
				Help:      "Total number of object store operation errors by operation type",
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "objectstore",
				Name:      "bytes_transferred_total",
				Help:      "Total bytes written (put) and read (get) through the object store",
			},
			[]string{"operation"},
		),
	}
}

func (m *objectStoreMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if err != nil {
		m.errorsTotal.WithLabelValues(operation).Inc()
	}
	m.operationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *objectStoreMetrics) RecordBytes(operation string, bytes int64) {
	m.bytesTransferred.WithLabelValues(operation).Add(float64(bytes))
}
