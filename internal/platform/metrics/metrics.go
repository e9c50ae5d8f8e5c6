package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the portal.
type Metrics struct {
	// Registry API calls made through the gateway
	RegistryCalls    *prometheus.CounterVec
	RegistryLatency  *prometheus.HistogramVec
	RegistryInFlight prometheus.Gauge

	// Banners shown to users, labeled by kind (success, error)
	Banners *prometheus.CounterVec
}

// New creates and registers all portal metrics on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistryCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardportal_registry_calls_total",
			Help: "Total number of registry API calls, labeled by operation and outcome",
		}, []string{"operation", "outcome"}),
		RegistryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cardportal_registry_call_duration_seconds",
			Help:    "Latency of registry API calls in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		RegistryInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cardportal_registry_calls_in_flight",
			Help: "Registry API calls currently waiting for a response",
		}),
		Banners: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardportal_banners_total",
			Help: "Total number of banners shown, labeled by kind",
		}, []string{"kind"}),
	}
}

// Busy marks one registry call as in flight until the returned func is called.
// It satisfies the gateway's busy indicator.
func (m *Metrics) Busy(_ context.Context) func() {
	m.RegistryInFlight.Inc()
	return m.RegistryInFlight.Dec
}

// ObserveRegistryCall records the outcome and latency of one registry call.
func (m *Metrics) ObserveRegistryCall(operation, outcome string, durationSeconds float64) {
	m.RegistryCalls.WithLabelValues(operation, outcome).Inc()
	m.RegistryLatency.WithLabelValues(operation).Observe(durationSeconds)
}

// IncrementBanners counts a banner of the given kind.
func (m *Metrics) IncrementBanners(kind string) {
	m.Banners.WithLabelValues(kind).Inc()
}
