package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	attributionRuns *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "copilotspend",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		},
		[]string{"route", "status"},
	)
	attributionRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "copilotspend",
			Name:      "attribution_runs_total",
			Help:      "Attribution computations by data source and blended-rate fallback.",
		},
		[]string{"source", "blended"},
	)
	registry.MustRegister(httpRequests, attributionRuns)

	return &metrics{
		registry:        registry,
		httpRequests:    httpRequests,
		attributionRuns: attributionRuns,
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
