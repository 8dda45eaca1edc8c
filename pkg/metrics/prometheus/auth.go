// Package prometheus provides the Prometheus implementation of auth.Metrics.
//
// Importing this package (usually for side effects) registers the
// implementation with pkg/metrics.
package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/metrics"
)

func init() {
	metrics.RegisterAuthMetricsConstructor(NewAuthMetrics)
}

// authMetrics is the Prometheus implementation of auth.Metrics.
type authMetrics struct {
	authentications   *prometheus.CounterVec
	duration          *prometheus.HistogramVec
	notifications     *prometheus.CounterVec
	observersNotified *prometheus.CounterVec
	attached          *prometheus.GaugeVec
}

var (
	instancesMu sync.Mutex
	instances   = make(map[*prometheus.Registry]*authMetrics)
)

// NewAuthMetrics creates a Prometheus-backed auth.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). Repeated
// calls against the same registry share one set of collectors.
func NewAuthMetrics() auth.Metrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	instancesMu.Lock()
	defer instancesMu.Unlock()

	if m, ok := instances[reg]; ok {
		return m
	}
	m := newAuthMetrics(reg)
	instances[reg] = m
	return m
}

func newAuthMetrics(reg prometheus.Registerer) *authMetrics {
	return &authMetrics{
		authentications: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoauth_authentications_total",
				Help: "Total number of authentication attempts by mechanism and status",
			},
			[]string{"mechanism", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittoauth_authentication_duration_milliseconds",
				Help: "Duration of authentication attempts in milliseconds",
				Buckets: []float64{
					0.01, // 10us - stub comparison
					0.05,
					0.1,
					0.5,
					1, // 1ms
					5,
					10,
					50,
					100, // 100ms - slow observers
				},
			},
			[]string{"mechanism"},
		),
		notifications: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoauth_notifications_total",
				Help: "Total number of observer notification rounds by mechanism",
			},
			[]string{"mechanism"},
		),
		observersNotified: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoauth_observers_notified_total",
				Help: "Total number of observer callbacks invoked by mechanism",
			},
			[]string{"mechanism"},
		),
		attached: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dittoauth_attached_users",
				Help: "Number of users currently attached to each mechanism",
			},
			[]string{"mechanism"},
		),
	}
}

// ObserveAuthentication records one authentication attempt.
func (m *authMetrics) ObserveAuthentication(mechanism string, status auth.Status, duration time.Duration) {
	m.authentications.WithLabelValues(mechanism, status.String()).Inc()
	m.duration.WithLabelValues(mechanism).Observe(float64(duration.Microseconds()) / 1000.0)
}

// RecordNotification records one Notify round.
func (m *authMetrics) RecordNotification(mechanism string, observers int) {
	m.notifications.WithLabelValues(mechanism).Inc()
	m.observersNotified.WithLabelValues(mechanism).Add(float64(observers))
}

// SetAttached sets the attached-user gauge.
func (m *authMetrics) SetAttached(mechanism string, count int) {
	m.attached.WithLabelValues(mechanism).Set(float64(count))
}

var _ auth.Metrics = (*authMetrics)(nil)
