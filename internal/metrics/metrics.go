// Package metrics exposes the Prometheus instrumentation for gramflow.
// Each Bot instance owns its own registry so independent instances in one
// process never collide.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters tracked by the routing layer.
type Metrics struct {
	registry *prometheus.Registry

	UpdatesReceived   *prometheus.CounterVec // by transport (polling|webhook)
	Dispatches        *prometheus.CounterVec // by update kind
	HandlerErrors     prometheus.Counter
	HandlerPanics     prometheus.Counter
	WebhookRejections *prometheus.CounterVec // by reason
}

// New creates a Metrics set backed by a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UpdatesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gramflow",
			Name:      "updates_received_total",
			Help:      "Updates received from Telegram, by transport.",
		}, []string{"transport"}),
		Dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gramflow",
			Name:      "dispatches_total",
			Help:      "Updates handed to the dispatcher, by payload kind.",
		}, []string{"kind"}),
		HandlerErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gramflow",
			Name:      "handler_errors_total",
			Help:      "Handler invocations that returned an error.",
		}),
		HandlerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gramflow",
			Name:      "handler_panics_total",
			Help:      "Handler invocations that panicked and were recovered.",
		}),
		WebhookRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gramflow",
			Name:      "webhook_rejections_total",
			Help:      "Webhook requests rejected before dispatch, by reason.",
		}, []string{"reason"}),
	}
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
