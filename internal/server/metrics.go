package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	TablesOpen        prometheus.Gauge
	CommandsTotal     *prometheus.CounterVec
	HandsStarted      *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "feltd",
			Name:      "connections_active",
			Help:      "Open WebSocket connections.",
		}),
		TablesOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "feltd",
			Name:      "tables_open",
			Help:      "Tables currently hosted.",
		}),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feltd",
			Name:      "commands_total",
			Help:      "Client commands received, by type.",
		}, []string{"type"}),
		HandsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feltd",
			Name:      "hands_started_total",
			Help:      "Hands dealt, by table.",
		}, []string{"table"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feltd",
			Name:      "errors_total",
			Help:      "Errors sent to clients, by code.",
		}, []string{"code"}),
	}
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
