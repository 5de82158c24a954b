// Package metrics provides Prometheus metrics for file access operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ElementOpsTotal counts capability operations by backend and outcome.
	ElementOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileaccess_element_ops_total",
			Help: "Total number of element operations",
		},
		[]string{"backend", "operation", "result"}, // result: "success", "failure"
	)

	ElementOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fileaccess_element_op_duration_seconds",
			Help:    "Element operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	// NamespaceBindsTotal counts namespace binds; there is at most one
	// per namespace between resets.
	NamespaceBindsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileaccess_namespace_binds_total",
			Help: "Total number of namespace bind attempts",
		},
		[]string{"driver", "result"},
	)
)

// ObserveOp records one operation.
func ObserveOp(backend, operation string, start time.Time, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	ElementOpsTotal.WithLabelValues(backend, operation, result).Inc()
	ElementOpDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

// ObserveBind records one namespace bind attempt.
func ObserveBind(driver string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	NamespaceBindsTotal.WithLabelValues(driver, result).Inc()
}
