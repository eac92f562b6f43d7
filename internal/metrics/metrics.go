package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instrumentation for the fulfillment pipeline. Each
// instance owns its registry so tests can build throwaway sets without
// tripping duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	PaymentNotifications *prometheus.CounterVec
	MintAttempts         *prometheus.CounterVec
	MintDuration         prometheus.Histogram
	VerifierLookups      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PaymentNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "payment_notifications_total",
			Help:      "Payment gateway notifications processed, by normalized result.",
		}, []string{"result"}),
		MintAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "mint_attempts_total",
			Help:      "Certificate mint attempts, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		MintDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "mint_duration_seconds",
			Help:      "Wall time of certificate mint attempts.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		VerifierLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "verifier_lookups_total",
			Help:      "Certificate verification lookups, by tier and result.",
		}, []string{"tier", "result"}),
	}
	m.registry.MustRegister(m.PaymentNotifications, m.MintAttempts, m.MintDuration, m.VerifierLookups)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
