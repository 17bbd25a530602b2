package rotation

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	credentialRotatedTotal  prometheus.Counter
	reconnectAttemptsTotal  *prometheus.CounterVec
	recoveryDuration        prometheus.Histogram

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// Metrics provides methods to record rotation metrics.
type Metrics struct{}

// NewMetrics creates a new Metrics instance.
// Metrics are no-ops until InitMetrics has been called.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// InitMetrics initializes all Prometheus metrics.
// This should be called once at startup if Prometheus metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		credentialRotatedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rotor_credential_rotated_total",
				Help: "Total number of observed secret transitions",
			},
		)

		reconnectAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotor_reconnect_attempts_total",
				Help: "Total number of reconnect attempts by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		)

		recoveryDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rotor_recovery_duration_seconds",
				Help:    "Duration of reactive auth-failure recoveries in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		)

		metricsRegistered = true
	})
}

// RecordCredentialRotated records one distinct observed secret transition.
func (m *Metrics) RecordCredentialRotated() {
	if !metricsRegistered || credentialRotatedTotal == nil {
		return
	}
	credentialRotatedTotal.Inc()
}

// RecordReconnectAttempt records a reconnect attempt and its outcome.
// Trigger is "policy" or "scheduler"; outcome is "success", "noop" or "failure".
func (m *Metrics) RecordReconnectAttempt(trigger, outcome string) {
	if !metricsRegistered || reconnectAttemptsTotal == nil {
		return
	}
	reconnectAttemptsTotal.WithLabelValues(trigger, outcome).Inc()
}

// RecordRecoveryDuration records how long a reactive recovery took.
func (m *Metrics) RecordRecoveryDuration(seconds float64) {
	if !metricsRegistered || recoveryDuration == nil {
		return
	}
	recoveryDuration.Observe(seconds)
}
