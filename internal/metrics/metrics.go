// Package metrics exposes the service's Prometheus metrics over an owned
// registry so tests never collide on the global one.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsNamespace is the namespace for all service metrics.
const MetricsNamespace = "mxindex"

// Metrics holds all Prometheus metrics for the index service.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	CacheOperationsTotal *prometheus.CounterVec
	ServersIndexed       prometheus.Gauge
	DiscoveryErrorsTotal *prometheus.CounterVec
	DiscoveryRunsTotal   prometheus.Counter
}

// New creates and registers all service metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served",
		},
		[]string{"method", "endpoint", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	m.CacheOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations by result",
		},
		[]string{"operation", "result"},
	)

	m.ServersIndexed = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "servers_indexed",
			Help:      "Number of homeservers currently in the index",
		},
	)

	m.DiscoveryErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "discovery_errors_total",
			Help:      "Total number of discovery failures by kind",
		},
		[]string{"kind"},
	)

	m.DiscoveryRunsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "discovery_runs_total",
			Help:      "Total number of discovery runs started",
		},
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts and times every request by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// CacheOperation counts a cache operation outcome.
func (m *Metrics) CacheOperation(operation, result string) {
	m.CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// ServerIndexed bumps the indexed servers gauge for a fresh insert.
func (m *Metrics) ServerIndexed() {
	m.ServersIndexed.Inc()
}

// SetServersIndexed resyncs the gauge from an authoritative count.
func (m *Metrics) SetServersIndexed(count int64) {
	m.ServersIndexed.Set(float64(count))
}

// DiscoveryError counts a discovery failure by kind.
func (m *Metrics) DiscoveryError(kind string) {
	m.DiscoveryErrorsTotal.WithLabelValues(kind).Inc()
}

// DiscoveryRun counts a started discovery run.
func (m *Metrics) DiscoveryRun() {
	m.DiscoveryRunsTotal.Inc()
}
