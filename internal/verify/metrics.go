package verify

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricVerificationsTotal   = "gate_verifications_total"
	MetricManualOverridesTotal = "gate_manual_overrides_total"
	MetricAlertsCreatedTotal   = "gate_alerts_created_total"
)

// Metrics contains Prometheus metrics for verification operations.
// All operations are thread-safe.
type Metrics struct {
	verificationsTotal   *prometheus.CounterVec
	manualOverridesTotal *prometheus.CounterVec
	alertsCreatedTotal   prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		verificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricVerificationsTotal,
				Help: "Total number of automatic verifications by outcome",
			},
			[]string{"status"},
		),
		manualOverridesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricManualOverridesTotal,
				Help: "Total number of manual grant/deny overrides by action",
			},
			[]string{"action"},
		),
		alertsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricAlertsCreatedTotal,
				Help: "Total number of security alerts created",
			},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncVerification increments the verification counter for an outcome
// ("granted" or "denied").
func (m *Metrics) IncVerification(status string) {
	m.verificationsTotal.WithLabelValues(status).Inc()
}

// IncManualOverride increments the manual override counter for an action
// ("grant" or "deny").
func (m *Metrics) IncManualOverride(action string) {
	m.manualOverridesTotal.WithLabelValues(action).Inc()
}

// IncAlertCreated increments the alerts created counter.
func (m *Metrics) IncAlertCreated() {
	m.alertsCreatedTotal.Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.verificationsTotal,
		m.manualOverridesTotal,
		m.alertsCreatedTotal,
	}
}
