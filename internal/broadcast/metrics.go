package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricConnectedObservers    = "ws_connected_observers"
	MetricEventsDelivered       = "ws_events_delivered_total"
	MetricEventDeliveryFailures = "ws_event_delivery_failures_total"
)

// Metrics contains Prometheus metrics for WebSocket broadcasting.
// All operations are thread-safe.
type Metrics struct {
	connectedObservers prometheus.Gauge
	eventsDelivered    *prometheus.CounterVec
	deliveryFailures   *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		connectedObservers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricConnectedObservers,
				Help: "Number of currently connected WebSocket observers",
			},
		),
		eventsDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEventsDelivered,
				Help: "Total number of events delivered to observers by type",
			},
			[]string{"event_type"},
		),
		deliveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEventDeliveryFailures,
				Help: "Total number of failed event deliveries by type",
			},
			[]string{"event_type"},
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

// SetConnected records the current observer count.
func (m *Metrics) SetConnected(n int) {
	m.connectedObservers.Set(float64(n))
}

// IncDelivery increments the delivered events counter.
func (m *Metrics) IncDelivery(eventType string) {
	m.eventsDelivered.WithLabelValues(eventType).Inc()
}

// IncDeliveryFailure increments the failed deliveries counter.
func (m *Metrics) IncDeliveryFailure(eventType string) {
	m.deliveryFailures.WithLabelValues(eventType).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.connectedObservers,
		m.eventsDelivered,
		m.deliveryFailures,
	}
}
