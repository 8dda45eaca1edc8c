// Package metrics exposes authentication metrics.
//
// Metrics are opt-in: until InitRegistry is called every constructor returns
// nil, and components treat a nil metrics sink as "don't record". The
// Prometheus implementation lives in pkg/metrics/prometheus and registers
// itself with this package at init time.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registryMu sync.RWMutex
	registry   *prometheus.Registry
)

// InitRegistry creates the metrics registry, with Go runtime and process
// collectors registered. Calling it again is a no-op.
func InitRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()

	if registry == nil {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		registry = reg
	}
	return registry
}

// GetRegistry returns the metrics registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// ResetRegistry drops the registry, disabling metrics. Intended for tests.
func ResetRegistry() {
	registryMu.Lock()
	registry = nil
	registryMu.Unlock()
}
