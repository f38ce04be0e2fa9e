// Package metrics exposes service counters in Prometheus format
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tasktracker"

type Metrics struct {
	registry *prometheus.Registry

	authOperations *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// New creates metrics on its own registry, so tests may create as many as they want
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		authOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Authentication operations by outcome.",
		}, []string{"operation", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Handled HTTP requests by method and status code.",
		}, []string{"method", "status"}),
	}

	registry.MustRegister(
		m.authOperations,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) AuthOperation(operation string, outcome string) {
	m.authOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) HTTPRequest(method string, status int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler serves metrics in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
