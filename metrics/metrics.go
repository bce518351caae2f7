// Package metrics exposes docforge's Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lvillar/docforge"
)

const namespace = "docforge"

// Metrics manages the metric information docforge measures.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	exportsTotal       *prometheus.CounterVec
	exportSeconds      *prometheus.HistogramVec
	exportedBytesTotal *prometheus.CounterVec

	sessionsActive prometheus.Gauge

	httpRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates a new instance of Metrics on its own registry.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	return &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		exportsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "total",
			Help:      "The total count of document exports by format and result.",
		}, []string{"format", "result"}),
		exportSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "The time spent serializing a document.",
		}, []string{"format"}),
		exportedBytesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "bytes_total",
			Help:      "The total number of bytes of exported documents.",
		}, []string{"format"}),
		sessionsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "The number of live editing sessions.",
		}),
		httpRequestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "The total count of HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
	}, nil
}

// WithServerVersion adds a server's version information metric.
func (m *Metrics) WithServerVersion(version string) {
	m.serverVersion.With(prometheus.Labels{
		"server_version": version,
	}).Set(1)
}

// ObserveExport records one finished export.
func (m *Metrics) ObserveExport(format docforge.Format, result string, elapsed time.Duration, size int) {
	m.exportsTotal.WithLabelValues(string(format), result).Inc()
	m.exportSeconds.WithLabelValues(string(format)).Observe(elapsed.Seconds())
	m.exportedBytesTotal.WithLabelValues(string(format)).Add(float64(size))
}

// SetSessions sets the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	m.sessionsActive.Set(float64(n))
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(method, route string, code int) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// Registry returns the registry holding every docforge metric.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
