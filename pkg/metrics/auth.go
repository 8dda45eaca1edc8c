package metrics

import (
	"github.com/marmos91/dittoauth/pkg/auth"
)

// NewAuthMetrics creates a Prometheus-backed auth.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or if the
// Prometheus implementation was not linked in. When nil is returned, callers
// should pass nil to mechanisms, which results in zero overhead.
//
// Example usage:
//
//	metrics.InitRegistry()
//	m := metrics.NewAuthMetrics()
//	mech := local.New(cfg, dir, auth.WithMetrics(m))
func NewAuthMetrics() auth.Metrics {
	if !IsEnabled() || newPrometheusAuthMetrics == nil {
		return nil
	}
	return newPrometheusAuthMetrics()
}

// newPrometheusAuthMetrics is set by pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusAuthMetrics func() auth.Metrics

// RegisterAuthMetricsConstructor registers the Prometheus auth metrics constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterAuthMetricsConstructor(constructor func() auth.Metrics) {
	newPrometheusAuthMetrics = constructor
}
