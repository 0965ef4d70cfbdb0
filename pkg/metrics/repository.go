package metrics

import (
	"time"

	"github.com/marmos91/dittorepo/pkg/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// repositoryMetrics is the Prometheus implementation of repository.Metrics.
type repositoryMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	filesTotal        *prometheus.CounterVec
}

// NewRepositoryMetrics creates Prometheus-backed repository metrics, or nil
// when metrics are disabled.
func NewRepositoryMetrics() repository.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newRepositoryMetrics(GetRegistry())
}

func newRepositoryMetrics(reg prometheus.Registerer) *repositoryMetrics {
	return &repositoryMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "repository",
				Name:      "operations_total",
				Help:      "Total number of repository operations by operation and outcome",
			},
			// outcome: none (success), validation, conflict, not_found, store
			[]string{"operation", "outcome"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "repository",
				Name:      "operation_duration_seconds",
				Help:      "Duration of repository operations in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"operation"},
		),
		filesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "repository",
				Name:      "files_total",
				Help:      "Total number of files uploaded or deleted by repository operations",
			},
			[]string{"operation"},
		),
	}
}

func (m *repositoryMetrics) ObserveOperation(operation string, kind repository.ErrorKind, duration time.Duration) {
	m.operationsTotal.WithLabelValues(operation, kind.String()).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *repositoryMetrics) RecordFiles(operation string, count int) {
	m.filesTotal.WithLabelValues(operation).Add(float64(count))
}
